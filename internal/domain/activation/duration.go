// Package activation contains the pure parts of the activation and
// deactivation workflows: duration clamping, requirement aggregation,
// authentication-context bucketing, submission requests and result summaries.
package activation

import "fmt"

// DefaultHours is the requested activation length when nothing else is given.
const DefaultHours = 8

// Duration is an activation length in hours and minutes.
type Duration struct {
	Hours   int `json:"hours" yaml:"hours"`
	Minutes int `json:"minutes" yaml:"minutes"`
}

// DefaultDuration returns 8h0m.
func DefaultDuration() Duration {
	return Duration{Hours: DefaultHours}
}

// FromMinutes normalizes a minute count into hours and minutes.
// Negative input yields the zero duration.
func FromMinutes(total int) Duration {
	if total < 0 {
		total = 0
	}
	return Duration{Hours: total / 60, Minutes: total % 60}
}

// TotalMinutes returns the duration length in minutes.
func (d Duration) TotalMinutes() int {
	return d.Hours*60 + d.Minutes
}

// ISO8601 renders the duration as "PTnHnM".
func (d Duration) ISO8601() string {
	n := FromMinutes(d.TotalMinutes())
	return fmt.Sprintf("PT%dH%dM", n.Hours, n.Minutes)
}

func (d Duration) String() string {
	n := FromMinutes(d.TotalMinutes())
	return fmt.Sprintf("%dh%dm", n.Hours, n.Minutes)
}

// Effective clamps the requested duration to the policy cap. Exceeding the cap
// is never an error: the excess is discarded.
func Effective(requested Duration, maxDurationHours int) Duration {
	req := requested.TotalMinutes()
	if req < 0 {
		req = 0
	}
	limit := maxDurationHours * 60
	if limit < 0 {
		limit = 0
	}
	return FromMinutes(min(req, limit))
}

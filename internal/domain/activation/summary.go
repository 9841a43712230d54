package activation

import "github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"

// Outcome is the result of one role in a batch.
type Outcome struct {
	RoleID      string    `json:"roleId" yaml:"roleId"`
	RoleType    role.Type `json:"roleType" yaml:"roleType"`
	DisplayName string    `json:"displayName" yaml:"displayName"`
	Success     bool      `json:"success" yaml:"success"`
	// Duration is the effective duration submitted (activations only).
	Duration *Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Message  string    `json:"message,omitempty" yaml:"message,omitempty"`
	Err      error     `json:"-" yaml:"-"`
}

// Summary aggregates the outcomes of an activation or deactivation batch.
type Summary struct {
	BatchID      string    `json:"batchId" yaml:"batchId"`
	SuccessCount int       `json:"successCount" yaml:"successCount"`
	TotalCount   int       `json:"totalCount" yaml:"totalCount"`
	Errors       []string  `json:"errors" yaml:"errors"`
	Outcomes     []Outcome `json:"outcomes" yaml:"outcomes"`
	// Cancelled is true when the user backed out before anything was submitted.
	Cancelled bool `json:"cancelled" yaml:"cancelled"`
}

// Succeeded records a successful role.
func (s *Summary) Succeeded(r role.Role, d *Duration) {
	s.TotalCount++
	s.SuccessCount++
	s.Outcomes = append(s.Outcomes, Outcome{
		RoleID:      r.ID,
		RoleType:    r.Type,
		DisplayName: r.DisplayName,
		Success:     true,
		Duration:    d,
	})
}

// Failed records a failed role with its friendly message.
func (s *Summary) Failed(r role.Role, err error) {
	msg := FriendlyMessage(err)
	s.TotalCount++
	s.Errors = append(s.Errors, displayName(r)+": "+msg)
	s.Outcomes = append(s.Outcomes, Outcome{
		RoleID:      r.ID,
		RoleType:    r.Type,
		DisplayName: r.DisplayName,
		Message:     msg,
		Err:         err,
	})
}

// FailedCount returns the number of failed roles.
func (s *Summary) FailedCount() int {
	return s.TotalCount - s.SuccessCount
}

func displayName(r role.Role) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.ID
}

package terminal

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/service"
)

// Format is an output format.
type Format string

// Supported output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Interactive reports whether the format is meant for people.
func (f Format) Interactive() bool {
	return f == FormatTable
}

// RoleView is the rendered shape of one role.
type RoleView struct {
	ID           string     `json:"id" yaml:"id"`
	Type         role.Type  `json:"type" yaml:"type"`
	Name         string     `json:"name" yaml:"name"`
	Scope        string     `json:"scope" yaml:"scope"`
	ScopeID      string     `json:"scopeId,omitempty" yaml:"scopeId,omitempty"`
	Status       string     `json:"status" yaml:"status"`
	MemberType   string     `json:"memberType,omitempty" yaml:"memberType,omitempty"`
	Start        *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End          *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	MaxHours     int        `json:"maxHours" yaml:"maxHours"`
	Requirements []string   `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	ProvidedBy   string     `json:"providedBy,omitempty" yaml:"providedBy,omitempty"`
	GroupOnly    bool       `json:"groupOnly,omitempty" yaml:"groupOnly,omitempty"`
}

// NewRoleView flattens r for display.
func NewRoleView(r role.Role) RoleView {
	p := r.EffectivePolicy()
	v := RoleView{
		ID:         r.ID,
		Type:       r.Type,
		Name:       r.DisplayName,
		Scope:      r.ScopeDisplay,
		ScopeID:    r.DirectoryScopeID,
		Status:     string(r.Status),
		MemberType: string(r.MemberType),
		Start:      r.StartDateTime,
		End:        r.EndDateTime,
		MaxHours:   p.MaxDurationHours,
	}
	if p.RequiresJustification {
		v.Requirements = append(v.Requirements, "Justification")
	}
	if p.RequiresTicket {
		v.Requirements = append(v.Requirements, "Ticket")
	}
	if p.RequiresMFA {
		v.Requirements = append(v.Requirements, "MFA")
	}
	if p.RequiresApproval {
		v.Requirements = append(v.Requirements, "Approval")
	}
	if p.RequiresAuthenticationContext {
		name := p.AuthenticationContextName
		if name == "" {
			name = p.AuthenticationContextID
		}
		v.Requirements = append(v.Requirements, "AuthContext: "+name)
	}
	if r.ProvidedBy != nil {
		v.ProvidedBy = r.ProvidedBy.GroupName
		if v.ProvidedBy == "" {
			v.ProvidedBy = r.ProvidedBy.GroupID
		}
		v.GroupOnly = r.ProvidedBy.GroupOnly
	}
	return v
}

// Renderer writes roles and batch summaries in one format.
type Renderer struct {
	out    io.Writer
	format Format
	now    func() time.Time
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer, format Format) *Renderer {
	return &Renderer{out: out, format: format, now: time.Now}
}

// Roles renders a role list under title (tables only).
func (r *Renderer) Roles(title string, roles []role.Role) error {
	views := make([]RoleView, 0, len(roles))
	for _, ro := range roles {
		views = append(views, NewRoleView(ro))
	}
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(views)
	case FormatYAML:
		return r.encodeYAML(views)
	}

	pterm.DefaultSection.WithWriter(r.out).Println(fmt.Sprintf("%s (%d)", title, len(views)))
	if len(views) == 0 {
		pterm.Info.WithWriter(r.out).Println("None.")
		return nil
	}
	data := pterm.TableData{{"NAME", "TYPE", "SCOPE", "MEMBER", "EXPIRES", "MAX", "REQUIRES", "VIA"}}
	for _, v := range views {
		via := v.ProvidedBy
		if via != "" && !v.GroupOnly {
			via += " (+direct)"
		}
		data = append(data, []string{
			v.Name,
			typeLabel(v.Type),
			v.Scope,
			v.MemberType,
			r.expires(v),
			strconv.Itoa(v.MaxHours) + "h",
			strings.Join(v.Requirements, ", "),
			via,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(r.out).Render()
}

// BatchResult is the machine-readable form of a role listing.
type BatchResult struct {
	Principal string     `json:"principal" yaml:"principal"`
	Eligible  []RoleView `json:"eligible,omitempty" yaml:"eligible,omitempty"`
	Active    []RoleView `json:"active,omitempty" yaml:"active,omitempty"`
	Warnings  []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	FetchedAt time.Time  `json:"fetchedAt" yaml:"fetchedAt"`
}

// Listing renders a fetch result. showEligible and showActive select the sets.
func (r *Renderer) Listing(res *service.BatchFetchResult, showEligible, showActive bool) error {
	if r.format.Interactive() {
		r.Warnings(res.Warnings)
		if showActive {
			if err := r.Roles("Active roles", res.Active); err != nil {
				return err
			}
		}
		if showEligible {
			return r.Roles("Eligible roles", res.Eligible)
		}
		return nil
	}

	out := BatchResult{Principal: res.PrincipalID, FetchedAt: res.FetchedAt}
	if showEligible {
		out.Eligible = make([]RoleView, 0, len(res.Eligible))
		for _, ro := range res.Eligible {
			out.Eligible = append(out.Eligible, NewRoleView(ro))
		}
	}
	if showActive {
		out.Active = make([]RoleView, 0, len(res.Active))
		for _, ro := range res.Active {
			out.Active = append(out.Active, NewRoleView(ro))
		}
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	if r.format == FormatYAML {
		return r.encodeYAML(out)
	}
	return r.encodeJSON(out)
}

// Warnings prints role-source warnings (tables only).
func (r *Renderer) Warnings(ws []service.SourceWarning) {
	if !r.format.Interactive() {
		return
	}
	for _, w := range ws {
		pterm.Warning.WithWriter(r.out).Printfln("Could not load %s roles: %v", w.Source, w.Err)
	}
}

// Summary renders a batch summary. verb is "Activated" or "Deactivated".
func (r *Renderer) Summary(verb string, s *activation.Summary) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(s)
	case FormatYAML:
		return r.encodeYAML(s)
	}

	if s.Cancelled {
		pterm.Warning.WithWriter(r.out).Println("Cancelled. Nothing was submitted.")
		return nil
	}
	for _, o := range s.Outcomes {
		if !o.Success {
			continue
		}
		if o.Duration != nil {
			pterm.Success.WithWriter(r.out).Printfln("%s %s for %s", verb, o.DisplayName, o.Duration)
		} else {
			pterm.Success.WithWriter(r.out).Printfln("%s %s", verb, o.DisplayName)
		}
	}
	for _, e := range s.Errors {
		pterm.Error.WithWriter(r.out).Println(e)
	}
	printer := pterm.Info
	if s.FailedCount() > 0 {
		printer = pterm.Warning
	}
	printer.WithWriter(r.out).Printfln("%s %d of %d role(s).", verb, s.SuccessCount, s.TotalCount)
	return nil
}

func (r *Renderer) expires(v RoleView) string {
	if v.Status != string(role.StatusActive) {
		return "-"
	}
	if v.End == nil {
		return "Permanent"
	}
	left := v.End.Sub(r.now())
	if left <= 0 {
		return "expired"
	}
	return formatRemaining(left)
}

func formatRemaining(d time.Duration) string {
	d = d.Truncate(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func typeLabel(t role.Type) string {
	switch t {
	case role.TypeDirectoryRole:
		return "Entra"
	case role.TypeGroup:
		return "Group"
	default:
		return string(t)
	}
}

func (r *Renderer) encodeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) encodeYAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

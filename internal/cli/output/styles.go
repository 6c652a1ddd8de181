package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Path    lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusSkipped lipgloss.Style
	StatusPending lipgloss.Style
}

// NewStyles creates the styles bound to a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),
		Path:    r.NewStyle().Foreground(lipgloss.Color("13")),

		StatusSuccess: r.NewStyle().Foreground(lipgloss.Color("10")).SetString("✓"),
		StatusFailed:  r.NewStyle().Foreground(lipgloss.Color("9")).SetString("✗"),
		StatusSkipped: r.NewStyle().Foreground(lipgloss.Color("11")).SetString("-"),
		StatusPending: r.NewStyle().Foreground(lipgloss.Color("8")).SetString("○"),
	}
}

// StatusIcon returns the icon for a job or run status.
func (s *Styles) StatusIcon(status string) string {
	switch status {
	case "success", "completed":
		return s.StatusSuccess.String()
	case "error", "failed":
		return s.StatusFailed.String()
	case "incompatible":
		return s.StatusSkipped.String()
	default:
		return s.StatusPending.String()
	}
}

// StatusStyle returns the text style for a status.
func (s *Styles) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "success", "completed":
		return s.Success
	case "error", "failed":
		return s.Error
	case "incompatible":
		return s.Warning
	default:
		return s.Muted
	}
}

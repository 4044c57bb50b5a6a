// Package render draws feedback form states for the terminal.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
)

// Theme holds the colors used for each phase. Colors are ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Loading    lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),
	Loading:    lipgloss.Color("75"),
	Success:    lipgloss.Color("114"),
	Error:      lipgloss.Color("203"),
}

// StateRenderer turns a State into a short block of styled text.
type StateRenderer struct {
	theme Theme
	width int
}

// NewStateRenderer returns a renderer wrapping at width. Zero disables wrapping.
func NewStateRenderer(theme Theme, width int) StateRenderer {
	return StateRenderer{theme: theme, width: width}
}

// Render draws state. ticket is shown when non-nil and the state is submitted.
func (renderer StateRenderer) Render(state feedback.State, ticket *feedback.Ticket) string {
	switch state.Phase() {
	case feedback.PhaseLoading:
		return renderer.line(renderer.theme.Loading, "Submitting feedback...")
	case feedback.PhaseSubmitted:
		out := renderer.line(renderer.theme.Success, "Thank you for your feedback.")
		if ticket != nil {
			meta := lipgloss.NewStyle().Foreground(renderer.theme.FaintText)
			out += "\n" + meta.Render(fmt.Sprintf("Ticket #%d (%s)", ticket.ID, ticket.Status))
		}
		return out
	case feedback.PhaseErrored:
		return renderer.renderError(state.Error)
	default:
		return renderer.line(renderer.theme.FaintText, "Waiting for feedback")
	}
}

func (renderer StateRenderer) line(color lipgloss.Color, text string) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(color)
	if renderer.width > 0 {
		style = style.Width(renderer.width)
	}
	return style.Render(text)
}

func (renderer StateRenderer) renderError(info feedback.ErrorInfo) string {
	description := info.Description
	if description == "" {
		description = feedback.FallbackErrorDescription
	}

	var b strings.Builder
	b.WriteString(renderer.line(renderer.theme.Error, description))

	// map order is random; sort so output is stable
	fields := make([]string, 0, len(info.Details))
	for field := range info.Details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	bullet := lipgloss.NewStyle().Foreground(renderer.theme.NormalText).PaddingLeft(2)
	for _, field := range fields {
		for _, fe := range info.Details[field] {
			b.WriteString("\n")
			b.WriteString(bullet.Render(fmt.Sprintf("- %s", fe.Description)))
		}
	}
	return b.String()
}

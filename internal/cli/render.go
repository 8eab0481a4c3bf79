package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ideabot/internal/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6"))

	summaryStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1).
		Width(80)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)
)

// renderRecord lays out every field with the summary field boxed last.
func renderRecord(rec schema.Record) string {
	if rec.IsZero() {
		return ""
	}
	summary := rec.Schema().SummaryField().Name
	var b strings.Builder
	b.WriteString(titleStyle.Render("Assessment: " + rec.Schema().Name))
	b.WriteString("\n\n")
	for _, fv := range rec.Fields() {
		if fv.Field.Name == summary {
			continue
		}
		b.WriteString(fieldStyle.Render(fv.Field.TitleOf()))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(fv.Text()))
		b.WriteString("\n\n")
	}
	f, _ := rec.Schema().Field(summary)
	b.WriteString(summaryStyle.Render(fieldStyle.Render(f.TitleOf()) + "\n" + strings.TrimSpace(rec.Get(summary))))
	return b.String()
}

func renderInfo(msg string) string { return infoStyle.Render(msg) }

func renderError(err error) string { return errorStyle.Render("Error: " + err.Error()) }

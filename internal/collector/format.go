package collector

import (
	"strings"

	"ideabot/internal/schema"
)

// Format renders an evaluation as one labeled paragraph per field in schema
// order, or just the summary field's text when verdictOnly is set.
func Format(rec schema.Record, verdictOnly bool) string {
	if rec.IsZero() {
		return ""
	}
	if verdictOnly {
		return rec.Get(rec.Schema().SummaryField().Name)
	}
	fields := rec.Fields()
	paras := make([]string, 0, len(fields))
	for _, fv := range fields {
		paras = append(paras, "**"+fv.Field.TitleOf()+"**\n"+strings.TrimSpace(fv.Text()))
	}
	return strings.Join(paras, "\n\n")
}

package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideabot/internal/schema"
)

func TestRenderSubstitutesIdea(t *testing.T) {
	for _, tmpl := range []Template{ValueFormula, BusinessAnalysis} {
		t.Run(tmpl.Name, func(t *testing.T) {
			require.Equal(t, 1, strings.Count(tmpl.Text, Placeholder))

			out := tmpl.Render("Problem: cats\nSolution: dogs")
			assert.NotContains(t, out, Placeholder)
			assert.Contains(t, out, "Problem: cats\nSolution: dogs")
		})
	}
}

func TestRenderLeavesBracesInIdea(t *testing.T) {
	out := Template{Text: "idea={idea}"}.Render("{weird} {idea}")
	assert.Equal(t, "idea={weird} {idea}", out)
}

func TestLookupRubric(t *testing.T) {
	r, ok := LookupRubric("VALUE_FORMULA")
	require.True(t, ok)
	assert.Same(t, schema.ValueFormula, r.Schema)
	assert.Equal(t, ValueFormula.Name, r.Template.Name)

	r, ok = LookupRubric("business_analysis")
	require.True(t, ok)
	assert.Same(t, schema.BusinessAnalysis, r.Schema)

	_, ok = LookupRubric("swot")
	assert.False(t, ok)

	tmpl, ok := Lookup("business_analysis")
	require.True(t, ok)
	assert.Equal(t, BusinessAnalysis.Text, tmpl.Text)
}

// Package prompts holds the instruction text sent with every evaluation.
package prompts

import (
	"strings"

	"ideabot/internal/schema"
)

// Placeholder is replaced by the collected idea description.
const Placeholder = "{idea}"

// SystemPrompt frames every evaluation.
const SystemPrompt = "you are a business idea validator"

// Template is a user prompt with a single {idea} substitution point.
type Template struct {
	Name string
	Text string
}

// Render substitutes idea into the template.
func (t Template) Render(idea string) string {
	return strings.ReplaceAll(t.Text, Placeholder, idea)
}

// ValueFormula frames the idea with the value equation.
var ValueFormula = Template{
	Name: "value_formula",
	Text: `
Alex Hormozi's value formula maximizes perceived value through four factors:

- Dream Outcome: The ideal result the customer seeks (higher is better)
- Likelihood of Achievement: Confidence the customer has in achieving the outcome (more is better)
- Time Delay: The time it takes to reach the outcome (shorter is better).
- Effort and Sacrifice: The work or trade-offs required (lower is better).

Formula:
Value = (Dream Outcome × Likelihood of Achievement) / (Time Delay × Effort and Sacrifice)

Apply this formula to the following Business Idea: {idea}

Is this idea worth investing time or money on? Based on the facts give a brutally honest answer.
`,
}

// BusinessAnalysis asks for a multi-criterion review.
var BusinessAnalysis = Template{
	Name: "business_analysis",
	Text: `
Act as an experienced startup advisor and analyze the business idea below.

Business Idea:
{idea}

Assess it on each of these criteria, citing the facts given and stating assumptions plainly:

- Market Potential: who the customers are, how many of them exist, and whether the market is growing.
- Feasibility: what it takes to build and deliver, and what could block it.
- Competitive Advantage: existing alternatives and why customers would switch.
- Risks: the biggest reasons this could fail and how each could be mitigated.
- Recommendation: a clear verdict on whether to pursue the idea.
- Next Steps: the three most useful actions to validate the idea cheaply.

Be brutally honest. Do not pad the answer with generic advice.
`,
}

var templates = map[string]Template{
	ValueFormula.Name:     ValueFormula,
	BusinessAnalysis.Name: BusinessAnalysis,
}

// Lookup returns a built-in template by name.
func Lookup(name string) (Template, bool) {
	t, ok := templates[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Rubric pairs a template with the schema its answers are checked against.
type Rubric struct {
	Name     string
	Template Template
	Schema   *schema.Schema
}

// LookupRubric returns the built-in pairing of the given name.
func LookupRubric(name string) (Rubric, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case schema.NameValueFormula:
		return Rubric{Name: schema.NameValueFormula, Template: ValueFormula, Schema: schema.ValueFormula}, true
	case schema.NameBusinessAnalysis:
		return Rubric{Name: schema.NameBusinessAnalysis, Template: BusinessAnalysis, Schema: schema.BusinessAnalysis}, true
	}
	return Rubric{}, false
}

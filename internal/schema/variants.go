package schema

import "strings"

const (
	NameValueFormula     = "value_formula"
	NameBusinessAnalysis = "business_analysis"
)

// ValueFormula scores an idea on the four factors of the value equation.
var ValueFormula = &Schema{
	Name: NameValueFormula,
	Fields: []Field{
		{Name: "dream_outcome", Type: TypeString, Description: "The ideal result the customer seeks"},
		{Name: "likelihood_of_achievement", Type: TypeString, Description: "How confident the customer can be of reaching the outcome"},
		{Name: "time_delay", Type: TypeString, Description: "How long it takes to reach the outcome"},
		{Name: "effort_and_sacrifice", Type: TypeString, Description: "The work or trade-offs required"},
		{Name: "conclusion", Type: TypeString, Description: "Whether the idea is worth investing in, honestly stated"},
	},
	Summary: "conclusion",
}

// BusinessAnalysis is the multi-criterion review variant.
var BusinessAnalysis = &Schema{
	Name: NameBusinessAnalysis,
	Fields: []Field{
		{Name: "market_potential", Type: TypeString, Description: "Size and growth of the addressable market"},
		{Name: "feasibility", Type: TypeString, Description: "Technical and operational feasibility"},
		{Name: "competitive_advantage", Type: TypeString, Description: "What sets the idea apart from alternatives"},
		{Name: "risks", Type: TypeString, Description: "Main risks and how they could be mitigated"},
		{Name: "recommendation", Type: TypeString, Description: "Overall verdict on the idea"},
		{Name: "next_steps", Type: TypeString, Description: "Concrete actions to validate or build the idea"},
	},
	Summary: "recommendation",
}

var registry = map[string]*Schema{
	NameValueFormula:     ValueFormula,
	NameBusinessAnalysis: BusinessAnalysis,
}

// Lookup returns a built-in schema by name.
func Lookup(name string) (*Schema, bool) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names lists the built-in schema names.
func Names() []string {
	return []string{NameValueFormula, NameBusinessAnalysis}
}

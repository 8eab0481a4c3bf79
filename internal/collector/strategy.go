package collector

import "strings"

// Stage names the point a session has reached.
type Stage string

const (
	StageIdle             Stage = "IDLE"
	StageAwaitingProblem  Stage = "AWAITING_PROBLEM"
	StageAwaitingSolution Stage = "AWAITING_SOLUTION"
	StageAwaitingResults  Stage = "AWAITING_RESULTS"
	StageAwaitingEffort   Stage = "AWAITING_EFFORT"
	StageAwaitingIdea     Stage = "AWAITING_IDEA"
	StageComplete         Stage = "COMPLETE"
)

const (
	ModeMultiStage    = "multi_stage"
	ModeSingleMessage = "single_message"
)

// Question is one field collected from the user.
type Question struct {
	Key    string
	Label  string
	Stage  Stage
	Prompt string
}

// Strategy decides which answers a session gathers before submitting and how
// much of the evaluation is shown back.
type Strategy struct {
	Name      string
	Intro     string
	Questions []Question
	// VerdictOnly surfaces just the schema's summary field.
	VerdictOnly bool
	// AutoStart lets free text open a session without a start trigger.
	AutoStart bool
}

// MultiStage walks the user through problem, solution, results and effort.
func MultiStage() Strategy {
	return Strategy{
		Name:  ModeMultiStage,
		Intro: "I will ask you four short questions about your idea.",
		Questions: []Question{
			{Key: "problem", Label: "Problem", Stage: StageAwaitingProblem,
				Prompt: "Problem: What problem does your product solve, and who has this problem?"},
			{Key: "solution", Label: "Solution", Stage: StageAwaitingSolution,
				Prompt: "Solution: How does your product or service solve this problem?"},
			{Key: "results", Label: "Results", Stage: StageAwaitingResults,
				Prompt: "Results: How quickly can users expect to see results or benefits?"},
			{Key: "effort", Label: "Effort", Stage: StageAwaitingEffort,
				Prompt: "Effort: What do users need to do to get results, and how easy is it for them?"},
		},
	}
}

// SingleMessage treats one message as the whole idea and replies with the
// verdict alone.
func SingleMessage() Strategy {
	return Strategy{
		Name: ModeSingleMessage,
		Questions: []Question{{
			Key:   "idea",
			Stage: StageAwaitingIdea,
			Prompt: `Please describe the following elements of your business idea:

Problem: What problem does your product solve, and who has this problem?
Solution: How does your product or service solve this problem?
Results: How quickly can users expect to see results or benefits?
Effort: What do users need to do to get results, and how easy is it for them?`,
		}},
		VerdictOnly: true,
		AutoStart:   true,
	}
}

// StrategyByName resolves a configured collector mode.
func StrategyByName(name string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ModeMultiStage, "":
		return MultiStage(), true
	case ModeSingleMessage:
		return SingleMessage(), true
	}
	return Strategy{}, false
}

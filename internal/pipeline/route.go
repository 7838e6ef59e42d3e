package pipeline

import "kazanim-analiz/internal/analysis"

// Decision is the routing outcome after a node execution.
type Decision int

const (
	Advance Decision = iota
	Retry
	Fail
)

func (d Decision) String() string {
	switch d {
	case Advance:
		return "advance"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// MaxObjectiveAttempts bounds the objective retriever's self-retry. The
// counter lives in state; the orchestrator's normal step loop re-invokes the
// node, so there is no second retry mechanism inside the node itself.
const MaxObjectiveAttempts = 3

// Route decides the next node from the outcome fields of the current state.
// It is pure and never re-runs business logic. Fail routes to the error
// handler; reason carries the cause when the state does not already hold one.
func Route(s analysis.State) (next string, d Decision, reason string) {
	if s.Done {
		return StepDone, Advance, ""
	}
	if s.Failed() {
		return StepErrorHandler, Fail, s.Error
	}

	switch s.CurrentStep {
	case "":
		return StepInput, Advance, ""
	case StepInput:
		if s.ExtractedText == "" {
			return StepErrorHandler, Fail, "no question text extracted from input"
		}
		return StepObjectives, Advance, ""
	case StepObjectives:
		if len(s.Objectives) > 0 {
			return StepSections, Advance, ""
		}
		if s.RetryCount < MaxObjectiveAttempts {
			return StepObjectives, Retry, ""
		}
		return StepErrorHandler, Fail, "no matching objectives after relaxed retries"
	case StepSections:
		// Absence of sections is a valid outcome, never an error.
		return StepRerank, Advance, ""
	case StepRerank:
		return StepGenerate, Advance, ""
	default:
		// Unrecognized step in a non-terminal state: a checkpoint written by
		// an incompatible version. Start over rather than guess.
		return StepInput, Advance, ""
	}
}

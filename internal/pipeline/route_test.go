package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kazanim-analiz/internal/analysis"
)

func TestRoute(t *testing.T) {
	obj := []analysis.Objective{{Code: "M.7.2.1", Score: 0.9}}

	tests := []struct {
		name string
		st   analysis.State
		next string
		dec  Decision
	}{
		{"fresh state starts at input", analysis.State{}, StepInput, Advance},
		{"done is terminal", analysis.State{Done: true, CurrentStep: StepGenerate}, StepDone, Advance},
		{"any error diverts to handler", analysis.State{CurrentStep: StepSections + "_timeout", Error: "timeout in section_retriever"}, StepErrorHandler, Fail},
		{"input with text advances", analysis.State{CurrentStep: StepInput, ExtractedText: "soru"}, StepObjectives, Advance},
		{"input without text fails", analysis.State{CurrentStep: StepInput}, StepErrorHandler, Fail},
		{"objectives found advances", analysis.State{CurrentStep: StepObjectives, Objectives: obj, RetryCount: 1}, StepSections, Advance},
		{"objectives empty retries", analysis.State{CurrentStep: StepObjectives, RetryCount: 1}, StepObjectives, Retry},
		{"objectives empty second retry", analysis.State{CurrentStep: StepObjectives, RetryCount: 2}, StepObjectives, Retry},
		{"objectives exhausted fails", analysis.State{CurrentStep: StepObjectives, RetryCount: 3}, StepErrorHandler, Fail},
		{"sections always advance", analysis.State{CurrentStep: StepSections}, StepRerank, Advance},
		{"rerank always advances", analysis.State{CurrentStep: StepRerank}, StepGenerate, Advance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, dec, _ := Route(tt.st)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.dec, dec)
		})
	}
}

func TestRouteExhaustionCarriesReason(t *testing.T) {
	_, dec, reason := Route(analysis.State{CurrentStep: StepObjectives, RetryCount: MaxObjectiveAttempts})
	assert.Equal(t, Fail, dec)
	assert.NotEmpty(t, reason)
}

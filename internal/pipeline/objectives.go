package pipeline

import (
	"context"
	"fmt"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
)

const objectiveTopK = 10

// objectiveRetriever searches the curriculum for candidate objectives. The
// attempt number is the retry counter already in state; each run increments
// it, so routing can bound the self-retry without a second counter.
func objectiveRetriever(search clients.ObjectiveSearch) NodeFunc {
	return func(ctx context.Context, s analysis.State) (analysis.Update, error) {
		attempt := s.RetryCount
		grade, subject := relaxFilters(s, attempt)

		objs, err := search.Search(ctx, s.ExtractedText, grade, subject, objectiveTopK)
		if err != nil {
			return analysis.Update{}, fmt.Errorf("objective search (attempt %d): %w", attempt, err)
		}
		if objs == nil {
			objs = []analysis.Objective{}
		}
		return analysis.Update{
			Objectives:  analysis.Objs(objs),
			RetryCount:  analysis.Int(attempt + 1),
			CurrentStep: analysis.String(StepObjectives),
		}, nil
	}
}

// relaxFilters is the progressive relaxation schedule: the most specific
// query first to keep false positives low, then widen for recall. Attempt 0
// filters by grade and subject, attempt 1 drops the subject, attempt 2 drops
// both. The grade comes from State.Grade, which prefers the student's
// declared grade over the model estimate.
func relaxFilters(s analysis.State, attempt int) (grade int, subject string) {
	switch {
	case attempt <= 0:
		return s.Grade(), s.UserSubject
	case attempt == 1:
		return s.Grade(), ""
	default:
		return 0, ""
	}
}

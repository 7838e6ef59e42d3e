package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
)

// inputAnalyzer extracts the question text. Text input passes through
// verbatim; image input delegates to the vision collaborator. Model-estimated
// grade is recorded only as a fallback and never displaces the student's
// declared grade.
func inputAnalyzer(vision clients.Vision) NodeFunc {
	return func(ctx context.Context, s analysis.State) (analysis.Update, error) {
		step := analysis.String(StepInput)

		if s.InputKind == analysis.InputText {
			return analysis.Update{
				ExtractedText: analysis.String(s.RawText),
				CurrentStep:   step,
			}, nil
		}

		if len(s.ImageData) == 0 {
			return analysis.Update{}, errors.New("image input without image data")
		}
		res, err := vision.Analyze(ctx, s.ImageData, s.ImageMIME)
		if err != nil {
			return analysis.Update{}, fmt.Errorf("vision analyze: %w", err)
		}

		u := analysis.Update{
			ExtractedText: analysis.String(strings.TrimSpace(res.Text)),
			CurrentStep:   step,
		}
		if len(res.Topics) > 0 {
			u.Topics = analysis.Strings(res.Topics)
		}
		if res.EstimatedGrade > 0 {
			u.EstimatedGrade = analysis.Int(res.EstimatedGrade)
		}
		if res.QuestionType != "" {
			u.QuestionType = analysis.String(res.QuestionType)
		}
		return u, nil
	}
}

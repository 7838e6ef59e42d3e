package pipeline

import (
	"context"
	"fmt"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
	"kazanim-analiz/internal/contract"
	"kazanim-analiz/internal/prompt"
)

// responseGenerator asks the generative model for a diagnosis under the
// structured-output contract. Malformed model output never fails the node:
// contract.Parse degrades it to a best-effort diagnosis and flags the state.
func responseGenerator(gen clients.Generator) NodeFunc {
	return func(ctx context.Context, s analysis.State) (analysis.Update, error) {
		p := prompt.Diagnosis(s.ExtractedText, s.TopObjectives, s.TopSections)

		raw, err := gen.Generate(ctx, p)
		if err != nil {
			return analysis.Update{}, fmt.Errorf("diagnosis generate: %w", err)
		}

		d, degraded := contract.Parse(raw)
		return analysis.Update{
			Diagnosis:   &d,
			Degraded:    analysis.Bool(degraded),
			Done:        analysis.Bool(true),
			CurrentStep: analysis.String(StepGenerate),
		}, nil
	}
}

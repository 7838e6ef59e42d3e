package pipeline

import (
	"context"
	"log"
	"time"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
)

// sectionSearchTimeout bounds the collaborator call below the node budget so
// a slow section search degrades to an empty list instead of a node fault.
// This node never hard-fails: no sections is a valid outcome.
const sectionSearchTimeout = 15 * time.Second

// maxObjectiveCodes caps how many candidate codes seed the section search.
const maxObjectiveCodes = 5

func sectionRetriever(search clients.SectionSearch) NodeFunc {
	return func(ctx context.Context, s analysis.State) (analysis.Update, error) {
		step := analysis.String(StepSections)

		if len(s.Objectives) == 0 {
			return analysis.Update{
				Sections:    analysis.Secs([]analysis.Section{}),
				CurrentStep: step,
			}, nil
		}

		codes := make([]string, 0, maxObjectiveCodes)
		for _, o := range s.Objectives {
			codes = append(codes, o.Code)
			if len(codes) == maxObjectiveCodes {
				break
			}
		}

		sctx, cancel := context.WithTimeout(ctx, sectionSearchTimeout)
		defer cancel()

		secs, err := search.SearchByObjectives(sctx, codes, s.ExtractedText)
		if err != nil {
			log.Printf("section search for %s failed, continuing without sections: %v", s.RequestID, err)
			secs = nil
		}
		if secs == nil {
			secs = []analysis.Section{}
		}
		return analysis.Update{
			Sections:    analysis.Secs(secs),
			CurrentStep: step,
		}, nil
	}
}

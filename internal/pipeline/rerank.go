package pipeline

import (
	"context"
	"log"
	"sort"
	"time"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
)

const (
	// TopObjectiveCount and TopSectionCount bound what reaches the response
	// generator.
	TopObjectiveCount = 5
	TopSectionCount   = 3

	rerankTimeout = 10 * time.Second
)

// reranker narrows the candidates to the top-K of each list. A configured
// reranking collaborator gets first say and its ordering is kept verbatim;
// without one, or when the rerank call fails, the candidates fall back to
// retrieval-score order. Like the section retriever this node never
// hard-fails.
func reranker(rr clients.Reranker) NodeFunc {
	return func(ctx context.Context, s analysis.State) (analysis.Update, error) {
		objs := append([]analysis.Objective(nil), s.Objectives...)
		secs := append([]analysis.Section(nil), s.Sections...)
		reranked := false

		if rr != nil && (len(objs) > 0 || len(secs) > 0) {
			rctx, cancel := context.WithTimeout(ctx, rerankTimeout)
			ro, rs, err := rr.Rerank(rctx, s.ExtractedText, objs, secs)
			cancel()
			if err != nil {
				log.Printf("rerank for %s failed, keeping retrieval order: %v", s.RequestID, err)
			} else {
				objs, secs = ro, rs
				reranked = true
			}
		}

		if !reranked {
			sort.SliceStable(objs, func(i, j int) bool { return objs[i].Score > objs[j].Score })
			sort.SliceStable(secs, func(i, j int) bool { return secs[i].Score > secs[j].Score })
		}

		return analysis.Update{
			TopObjectives: analysis.Objs(truncObjectives(objs, TopObjectiveCount)),
			TopSections:   analysis.Secs(truncSections(secs, TopSectionCount)),
			CurrentStep:   analysis.String(StepRerank),
		}, nil
	}
}

func truncObjectives(in []analysis.Objective, k int) []analysis.Objective {
	if in == nil {
		in = []analysis.Objective{}
	}
	if len(in) > k {
		in = in[:k]
	}
	return in
}

func truncSections(in []analysis.Section, k int) []analysis.Section {
	if in == nil {
		in = []analysis.Section{}
	}
	if len(in) > k {
		in = in[:k]
	}
	return in
}

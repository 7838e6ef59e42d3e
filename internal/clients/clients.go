// Package clients declares the external collaborator contracts the pipeline
// consumes. Implementations live in subpackages (Gemini) and in
// internal/search (Postgres); tests substitute in-package fakes.
package clients

import (
	"context"

	"kazanim-analiz/internal/analysis"
)

// VisionResult is what the vision collaborator extracts from a question photo.
type VisionResult struct {
	Text           string   `json:"soru_metni"`
	Topics         []string `json:"konular"`
	EstimatedGrade int      `json:"tahmini_sinif"`
	QuestionType   string   `json:"soru_tipi"`
	Confidence     float64  `json:"guven_skoru"`
}

// Vision extracts the question text and coarse metadata from an image.
type Vision interface {
	Analyze(ctx context.Context, image []byte, mime string) (VisionResult, error)
}

// ObjectiveSearch is the hybrid curriculum-objective search. Grade 0 and an
// empty subject mean "no filter"; each filter must be independently optional
// because the relaxation policy drops them one at a time.
type ObjectiveSearch interface {
	Search(ctx context.Context, query string, grade int, subject string, topK int) ([]analysis.Objective, error)
}

// SectionSearch finds textbook sections covering the given objective codes.
type SectionSearch interface {
	SearchByObjectives(ctx context.Context, codes []string, query string) ([]analysis.Section, error)
}

// Reranker reorders retrieval candidates, most relevant first. The reranker
// is optional: a nil collaborator means candidates keep their retrieval-score
// order.
type Reranker interface {
	Rerank(ctx context.Context, query string, objectives []analysis.Objective, sections []analysis.Section) ([]analysis.Objective, []analysis.Section, error)
}

// Generator is the generative model behind the response generator node.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

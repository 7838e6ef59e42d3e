// Package handle exposes the analysis pipeline over HTTP.
package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/checkpoint"
	"kazanim-analiz/internal/pipeline"
)

// Archive persists terminal states beyond the checkpoint TTL so finished
// analyses stay retrievable. Implemented by search.ArchiveRepo.
type Archive interface {
	Upsert(ctx context.Context, st analysis.State) error
	Find(ctx context.Context, requestID string, maxAge time.Duration) (analysis.State, error)
}

type Handle struct {
	orc     *pipeline.Orchestrator
	store   checkpoint.Store
	archive Archive // nil when no database is configured
}

func New(orc *pipeline.Orchestrator, store checkpoint.Store, archive Archive) *Handle {
	return &Handle{orc: orc, store: store, archive: archive}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

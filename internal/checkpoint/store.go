// Package checkpoint persists pipeline state after every node transition so
// an interrupted analysis can be inspected or resumed.
package checkpoint

import (
	"context"
	"errors"

	"kazanim-analiz/internal/analysis"
)

var ErrNotFound = errors.New("checkpoint: not found")

// Store is keyed by request id. Distinct keys must be writable concurrently;
// the orchestrator never shares a key between two live requests.
type Store interface {
	Save(ctx context.Context, requestID string, st analysis.State) error
	Load(ctx context.Context, requestID string) (analysis.State, error)
}

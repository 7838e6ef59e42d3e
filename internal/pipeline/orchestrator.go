package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/checkpoint"
	"kazanim-analiz/internal/metrics"
)

// Orchestrator owns the node registry and drives one request from start to
// terminal state, persisting a checkpoint after every node so a crash or
// restart mid-pipeline resumes from the last completed step.
//
// Orchestrators are safe for concurrent use; each request owns its own state
// record and the checkpoint store is keyed by request id.
type Orchestrator struct {
	nodes map[string]Node
	store checkpoint.Store
}

// Option tweaks orchestrator construction.
type Option func(map[string]time.Duration)

// WithBudget overrides one node's time budget.
func WithBudget(node string, d time.Duration) Option {
	return func(budgets map[string]time.Duration) {
		budgets[node] = d
	}
}

func New(c Collaborators, store checkpoint.Store, opts ...Option) *Orchestrator {
	budgets := defaultBudgets()
	for _, opt := range opts {
		opt(budgets)
	}
	return &Orchestrator{
		nodes: buildNodes(c, budgets),
		store: store,
	}
}

// Run executes the pipeline for a fresh request and returns its terminal
// state. The returned state always carries a diagnosis: a validated one on
// success, a degraded or generic fallback otherwise.
func (o *Orchestrator) Run(ctx context.Context, st analysis.State) (analysis.State, error) {
	if st.RequestID == "" {
		st.RequestID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	return o.loop(ctx, st)
}

// Resume re-enters an interrupted request from its last checkpoint. Resuming
// an already-terminal request returns the stored state without executing any
// node.
func (o *Orchestrator) Resume(ctx context.Context, requestID string) (analysis.State, error) {
	st, err := o.store.Load(ctx, requestID)
	if err != nil {
		return analysis.State{}, err
	}
	if st.Done {
		return st, nil
	}
	return o.loop(ctx, st)
}

func (o *Orchestrator) loop(ctx context.Context, st analysis.State) (analysis.State, error) {
	next, dec, reason := Route(st)
	for {
		if dec == Advance && next == StepDone {
			o.recordResult(st)
			return st, nil
		}

		// A Fail decision on a clean state means a node legitimately found
		// nothing to work with; record the cause before the error handler runs.
		if dec == Fail && !st.Failed() {
			st.Error = reason
			st.ErrorKind = analysis.ErrEmpty
		}

		node, ok := o.nodes[next]
		if !ok {
			return st, fmt.Errorf("pipeline: unknown node %q", next)
		}

		u := runNode(ctx, node, st)
		st = analysis.Merge(st, u)
		st.UpdatedAt = time.Now().UTC()

		// Caller abandoned the request: the in-flight call was already
		// canceled via ctx; drop the checkpoint too.
		if ctx.Err() != nil {
			return st, ctx.Err()
		}

		if err := o.store.Save(ctx, st.RequestID, st); err != nil {
			// A lost checkpoint costs resumability, not correctness.
			log.Printf("checkpoint save %s: %v", st.RequestID, err)
		}

		next, dec, reason = Route(st)
	}
}

func (o *Orchestrator) recordResult(st analysis.State) {
	switch {
	case st.Failed():
		metrics.Requests.WithLabelValues("error").Inc()
	case st.Degraded:
		metrics.Requests.WithLabelValues("degraded").Inc()
	default:
		metrics.Requests.WithLabelValues("done").Inc()
	}
}

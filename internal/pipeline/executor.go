package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/pipz"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/metrics"
)

// execReq carries one node execution through the pipz chain.
type execReq struct {
	state  analysis.State
	update analysis.Update
}

// runNode executes a node under its time budget and converts any fault into
// a well-formed partial update. It never returns an error: a timeout yields
// {error: "timeout in <node>", current_step: "<node>_timeout"}, any other
// fault yields {error: <msg>, current_step: "<node>_error"}. Converting
// faults to data is what lets the routing policy stay declarative.
func runNode(ctx context.Context, n Node, st analysis.State) analysis.Update {
	proc := pipz.Apply(pipz.NewIdentity(n.Name, ""), func(ctx context.Context, r *execReq) (*execReq, error) {
		u, err := safeRun(ctx, n.Run, r.state)
		if err != nil {
			return r, err
		}
		r.update = u
		return r, nil
	})
	wrapped := pipz.NewTimeout(pipz.NewIdentity(n.Name+"_budget", ""), proc, n.Budget)

	req := &execReq{state: st}
	start := time.Now()
	_, err := wrapped.Process(ctx, req)
	metrics.NodeDuration.WithLabelValues(n.Name).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.NodeRuns.WithLabelValues(n.Name, "ok").Inc()
		return req.update
	}

	if isTimeout(err) {
		metrics.NodeRuns.WithLabelValues(n.Name, "timeout").Inc()
		return analysis.Update{
			Error:       analysis.String(fmt.Sprintf("timeout in %s", n.Name)),
			ErrorKind:   analysis.Kind(analysis.ErrTimeout),
			CurrentStep: analysis.String(n.Name + "_timeout"),
		}
	}

	metrics.NodeRuns.WithLabelValues(n.Name, "fault").Inc()
	return analysis.Update{
		Error:       analysis.String(rootMessage(err)),
		ErrorKind:   analysis.Kind(analysis.ErrFault),
		CurrentStep: analysis.String(n.Name + "_error"),
	}
}

// safeRun shields the executor from panicking node bodies.
func safeRun(ctx context.Context, fn NodeFunc, s analysis.State) (u analysis.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, s)
}

func isTimeout(err error) bool {
	var pe *pipz.Error[*execReq]
	if errors.As(err, &pe) && pe.Timeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// rootMessage unwraps the pipz envelope so the state carries the node's own
// fault message.
func rootMessage(err error) string {
	var pe *pipz.Error[*execReq]
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}

// Package pipeline drives the multi-step question analysis: five nodes plus
// an error handler, a routing policy over node outcomes, and an orchestrator
// that checkpoints state after every transition.
//
// The node graph is data, not inheritance: each node is a named function from
// state to a sparse update, registered in a map, and the routing policy is a
// separate pure function. The only backward edge is the objective retriever's
// bounded self-retry with progressively relaxed filters.
package pipeline

import (
	"context"
	"time"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
)

// Step names. Node-written current_step values carry a _timeout or _error
// suffix when the executor converts a fault.
const (
	StepInput        = "input_analyzer"
	StepObjectives   = "objective_retriever"
	StepSections     = "section_retriever"
	StepRerank       = "reranker"
	StepGenerate     = "response_generator"
	StepErrorHandler = "error_handler"
	StepDone         = "done"
)

// NodeFunc is one pipeline step: pure in the sense that it only reads the
// state and returns a sparse update; all side effects go through the
// collaborator it closes over.
type NodeFunc func(ctx context.Context, s analysis.State) (analysis.Update, error)

// Node couples a step function with its time budget.
type Node struct {
	Name   string
	Budget time.Duration
	Run    NodeFunc
}

// Collaborators bundles the external services the nodes delegate to.
type Collaborators struct {
	Vision     clients.Vision
	Objectives clients.ObjectiveSearch
	Sections   clients.SectionSearch
	Reranker   clients.Reranker
	Generator  clients.Generator
}

func defaultBudgets() map[string]time.Duration {
	return map[string]time.Duration{
		StepInput:        30 * time.Second,
		StepObjectives:   20 * time.Second,
		StepSections:     20 * time.Second,
		StepRerank:       15 * time.Second,
		StepGenerate:     30 * time.Second,
		StepErrorHandler: 5 * time.Second,
	}
}

func buildNodes(c Collaborators, budgets map[string]time.Duration) map[string]Node {
	mk := func(name string, fn NodeFunc) Node {
		return Node{Name: name, Budget: budgets[name], Run: fn}
	}
	return map[string]Node{
		StepInput:        mk(StepInput, inputAnalyzer(c.Vision)),
		StepObjectives:   mk(StepObjectives, objectiveRetriever(c.Objectives)),
		StepSections:     mk(StepSections, sectionRetriever(c.Sections)),
		StepRerank:       mk(StepRerank, reranker(c.Reranker)),
		StepGenerate:     mk(StepGenerate, responseGenerator(c.Generator)),
		StepErrorHandler: mk(StepErrorHandler, errorHandler()),
	}
}

package checkpoint

import (
	"context"
	"sync"

	"kazanim-analiz/internal/analysis"
)

// Memory is an in-process Store for tests and single-node deployments.
type Memory struct {
	mu sync.RWMutex
	m  map[string]analysis.State
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]analysis.State)}
}

func (s *Memory) Save(_ context.Context, requestID string, st analysis.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[requestID] = st
	return nil
}

func (s *Memory) Load(_ context.Context, requestID string) (analysis.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[requestID]
	if !ok {
		return analysis.State{}, ErrNotFound
	}
	return st, nil
}

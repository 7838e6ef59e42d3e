package telegram

import "sync"

// prefStore keeps the per-chat declared grade and subject. Declared values
// are authoritative for the pipeline; they are never replaced by model
// estimates.
type prefStore struct {
	mu sync.RWMutex
	m  map[int64]pref
}

type pref struct {
	grade   int
	subject string
}

func (p *prefStore) setGrade(cid int64, grade int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[int64]pref)
	}
	v := p.m[cid]
	v.grade = grade
	p.m[cid] = v
}

func (p *prefStore) setSubject(cid int64, subject string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[int64]pref)
	}
	v := p.m[cid]
	v.subject = subject
	p.m[cid] = v
}

func (p *prefStore) get(cid int64) (grade int, subject string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := p.m[cid]
	return v.grade, v.subject
}

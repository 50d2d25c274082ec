package settings

import "sync"

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	values   Values
	watchers []func(old, new Values)
}

func NewMemoryStore(initial Values) *MemoryStore {
	return &MemoryStore{values: initial}
}

func (s *MemoryStore) Get() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

func (s *MemoryStore) Update(p Patch) error {
	s.mu.Lock()
	old := s.values
	p.Apply(&s.values)
	next := s.values
	watchers := make([]func(old, new Values), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	if old == next {
		return nil
	}
	for _, cb := range watchers {
		cb(old, next)
	}
	return nil
}

func (s *MemoryStore) OnChange(cb func(old, new Values)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, cb)
}

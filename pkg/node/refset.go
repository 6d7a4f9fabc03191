package node

import "sync"

// RefSet holds the cross-node actor references injected into a service by
// the wiring coordinator. References are non-owning: the holder never stops
// the referenced actor. Lookups before wiring completes report the
// dependency as unavailable.
type RefSet struct {
	mu   sync.RWMutex
	refs map[string]*Ref
}

// NewRefSet creates an empty reference set.
func NewRefSet() *RefSet {
	return &RefSet{refs: make(map[string]*Ref)}
}

// Set stores ref under name, replacing any previous reference.
func (s *RefSet) Set(name string, ref *Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[name] = ref
}

// Get returns the reference stored under name, or an error if the
// dependency has not been wired yet or the target has stopped.
func (s *RefSet) Get(name string) (*Ref, error) {
	s.mu.RLock()
	ref, ok := s.refs[name]
	s.mu.RUnlock()

	if !ok || ref == nil || ref.Stopped() {
		return nil, ErrDependencyUnavailable
	}
	return ref, nil
}

// Names returns the logical names currently wired.
func (s *RefSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.refs))
	for name := range s.refs {
		names = append(names, name)
	}
	return names
}

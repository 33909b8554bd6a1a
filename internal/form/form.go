// Package form provides a keyed string-field container shared by the lookup
// and enrichment forms.
package form

import (
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Fields maps a field name to its current value.
type Fields map[string]string

// Clone returns a copy of f.
func (f Fields) Clone() Fields {
	return maps.Clone(f)
}

// Observer receives the field state after every change.
type Observer func(Fields)

// Store holds form field state. The key set is fixed at construction; writes
// to unknown keys are dropped. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	defaults  Fields
	fields    Fields
	observers []subscription
	nextObs   int
}

type subscription struct {
	id int
	fn Observer
}

// New creates a Store seeded with defaults. The defaults are copied, so later
// changes to the caller's map do not affect Reset.
func New(defaults Fields) *Store {
	d := defaults.Clone()
	if d == nil {
		d = Fields{}
	}
	return &Store{
		defaults: d,
		fields:   d.Clone(),
	}
}

// Get returns the current value of name.
func (s *Store) Get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields[name]
}

// Fields returns a copy of the current state.
func (s *Store) Fields() Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields.Clone()
}

// Update replaces the value of a single field.
func (s *Store) Update(name, value string) {
	s.mu.Lock()
	if !s.setLocked(name, value) {
		s.mu.Unlock()
		return
	}
	snap, obs := s.snapshotLocked()
	s.mu.Unlock()
	notify(obs, snap)
}

// Merge overwrites the fields present in partial and keeps the rest.
func (s *Store) Merge(partial Fields) {
	s.mu.Lock()
	changed := false
	for name, value := range partial {
		if s.setLocked(name, value) {
			changed = true
		}
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	snap, obs := s.snapshotLocked()
	s.mu.Unlock()
	notify(obs, snap)
}

// Reset restores the mapping given at construction.
func (s *Store) Reset() {
	s.mu.Lock()
	s.fields = s.defaults.Clone()
	snap, obs := s.snapshotLocked()
	s.mu.Unlock()
	notify(obs, snap)
}

// Subscribe registers fn to be called after every change. Observers run in
// subscription order. The returned func removes the subscription.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.observers = slices.DeleteFunc(s.observers, func(sub subscription) bool {
				return sub.id == id
			})
			s.mu.Unlock()
		})
	}
}

func (s *Store) setLocked(name, value string) bool {
	if _, ok := s.defaults[name]; !ok {
		zap.L().Debug("form: ignoring unknown field", zap.String("field", name))
		return false
	}
	s.fields[name] = value
	return true
}

// snapshotLocked copies the state and observer list so observers run without
// the lock held and may call back into the store.
func (s *Store) snapshotLocked() (Fields, []Observer) {
	obs := make([]Observer, 0, len(s.observers))
	for _, sub := range s.observers {
		obs = append(obs, sub.fn)
	}
	return s.fields.Clone(), obs
}

func notify(obs []Observer, snap Fields) {
	for _, o := range obs {
		o(snap.Clone())
	}
}

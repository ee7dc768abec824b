package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"timetrack/internal/core"
	"timetrack/internal/store"
)

// Store keeps events in memory. When created with a file path every mutation
// rewrites the file, so the data survives restarts.
type Store struct {
	mu     sync.Mutex
	path   string
	events []core.Event
}

func New(events ...core.Event) *Store {
	return &Store{events: append([]core.Event(nil), events...)}
}

// NewFromFile loads events from a JSON array file. A missing file yields an
// empty store that will create the file on first write.
func NewFromFile(path string) (*Store, error) {
	s := &Store{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.events); err != nil {
		return nil, fmt.Errorf("decode events file %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) List(_ context.Context) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Event{}, s.events...), nil
}

func (s *Store) Get(_ context.Context, id core.EventID) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Event{}, store.ErrNotFound
	}
	return s.events[i], nil
}

func (s *Store) Create(_ context.Context, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Event{ID: s.nextID()}.Apply(in)
	s.events = append(s.events, e)
	if err := s.flush(); err != nil {
		s.events = s.events[:len(s.events)-1]
		return core.Event{}, err
	}
	return e, nil
}

func (s *Store) Update(_ context.Context, id core.EventID, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Event{}, store.ErrNotFound
	}
	prev := s.events[i]
	s.events[i] = prev.Apply(in)
	if err := s.flush(); err != nil {
		s.events[i] = prev
		return core.Event{}, err
	}
	return s.events[i], nil
}

func (s *Store) Delete(_ context.Context, id core.EventID) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Event{}, store.ErrNotFound
	}
	removed := s.events[i]
	prev := s.events
	s.events = append(append([]core.Event{}, prev[:i]...), prev[i+1:]...)
	if err := s.flush(); err != nil {
		s.events = prev
		return core.Event{}, err
	}
	return removed, nil
}

// Ping reports the store as ready; it never fails.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) indexOf(id core.EventID) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// nextID is one past the highest id ever seen in the current data.
func (s *Store) nextID() core.EventID {
	var max core.EventID
	for _, e := range s.events {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create events directory: %w", err)
	}
	b, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write events file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace events file: %w", err)
	}
	return nil
}

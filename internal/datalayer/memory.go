package datalayer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

// MemorySink keeps the data layer in process. The underlying slice is created
// on the first push.
type MemorySink struct {
	mu      sync.Mutex
	entries []ecommerce.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Name() string {
	return "memory"
}

func (s *MemorySink) Reset(ctx context.Context) error {
	s.push(ecommerce.ResetMarker())
	return nil
}

func (s *MemorySink) Append(ctx context.Context, ev ecommerce.Event) error {
	s.push(ev)
	return nil
}

func (s *MemorySink) push(ev ecommerce.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make([]ecommerce.Event, 0, 16)
	}
	s.entries = append(s.entries, ev)
}

// Created reports whether anything was ever pushed.
func (s *MemorySink) Created() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries != nil
}

func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Events returns a copy of the pushed entries.
func (s *MemorySink) Events() []ecommerce.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ecommerce.Event, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemorySink) Entries(ctx context.Context) ([]json.RawMessage, error) {
	events := s.Events()
	out := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal entry: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// Package workitems is the narrow seam to each person's task list and
// progress log. The core only appends check-in responses and reads back a
// short status; the real store lives elsewhere.
package workitems

import (
	"sync"
	"time"
)

// Response is one logged check-in answer.
type Response struct {
	Kind string
	Text string
	At   time.Time
}

// Repository is the capability the reply path consumes.
type Repository interface {
	RecordResponse(recipientID, kind, text string, at time.Time) error
	RecentResponses(recipientID string, limit int) ([]Response, error)
}

// MemoryStore is the in-process Repository used when no external store is
// wired. Per-recipient history, newest last.
type MemoryStore struct {
	mu      sync.Mutex
	history map[string][]Response
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]Response)}
}

// RecordResponse appends one answer to the recipient's history.
func (s *MemoryStore) RecordResponse(recipientID, kind, text string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[recipientID] = append(s.history[recipientID], Response{Kind: kind, Text: text, At: at})
	return nil
}

// RecentResponses returns up to limit of the newest answers, oldest first.
func (s *MemoryStore) RecentResponses(recipientID string, limit int) ([]Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.history[recipientID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Response, len(all))
	copy(out, all)
	return out, nil
}

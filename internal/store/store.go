// Package store persists workflow run records. Three backends share one
// interface: an in-process map for development, Redis for shared deployments
// and SQLite for single-node persistence.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// RunRecord captures one finished workflow run.
type RunRecord struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	Workflow  string         `json:"workflow"`
	Input     string         `json:"input"`
	State     map[string]any `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists run records keyed by run ID and indexed by thread.
type Store interface {
	Save(ctx context.Context, record *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	ListByThread(ctx context.Context, threadID string) ([]*RunRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context, threadID string) error
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*RunRecord
	threads map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*RunRecord),
		threads: make(map[string][]string),
	}
}

// Save stores a copy of the record.
func (s *MemoryStore) Save(_ context.Context, record *RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists && record.ThreadID != "" {
		s.threads[record.ThreadID] = append(s.threads[record.ThreadID], record.ID)
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// Get returns the record by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("run record not found: %s", id)
	}
	clone := *record
	return &clone, nil
}

// ListByThread returns the thread's records ordered by creation time.
func (s *MemoryStore) ListByThread(_ context.Context, threadID string) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.threads[threadID]
	records := make([]*RunRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.records[id]; ok {
			clone := *record
			records = append(records, &clone)
		}
	}
	sortByCreatedAt(records)
	return records, nil
}

// Delete removes one record. Deleting a missing record is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.records, id)

	if record.ThreadID != "" {
		ids := s.threads[record.ThreadID]
		for i, rid := range ids {
			if rid == id {
				s.threads[record.ThreadID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	return nil
}

func sortByCreatedAt(records []*RunRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

// Clear removes every record of a thread.
func (s *MemoryStore) Clear(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.threads[threadID] {
		delete(s.records, id)
	}
	delete(s.threads, threadID)
	return nil
}

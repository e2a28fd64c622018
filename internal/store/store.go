// Package store holds the last response delivered per correlation id so a
// later GENERIC request (reversal, redelivery) can look it up. The store is
// constructed explicitly and passed to whoever needs it; its lifetime is
// the process (memory backend) or whatever the database retains (pg
// backend). Never a process-wide global.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("already exists")
)

// Entry is one stored response.
type Entry struct {
	CorrelationID string
	Stage         string
	Payload       string
	CreatedAt     time.Time
}

// ResponseStore keeps the last response per correlation id.
type ResponseStore struct {
	mu      sync.RWMutex
	entries map[string]Entry

	db *sql.DB
}

// NewResponseStore returns an in-memory store.
func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		entries: make(map[string]Entry),
	}
}

// NewPGResponseStore returns a store backed by Postgres. The schema is
// expected to exist: flow.responses(correlation_id primary key, stage,
// payload, created_at).
func NewPGResponseStore(db *sql.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

// Put stores a response. Storing a second response for the same
// correlation id fails with ErrConflict.
func (s *ResponseStore) Put(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.entries[entry.CorrelationID]; ok {
			return fmt.Errorf("response for %s: %w", entry.CorrelationID, ErrConflict)
		}
		s.entries[entry.CorrelationID] = entry
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO flow.responses(correlation_id, stage, payload, created_at)
        VALUES ($1,$2,$3,$4)
    `, entry.CorrelationID, entry.Stage, entry.Payload, entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("response for %s: %w", entry.CorrelationID, ErrConflict)
		}
		return fmt.Errorf("storing response: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// Get returns the stored response for a correlation id.
func (s *ResponseStore) Get(ctx context.Context, correlationID string) (Entry, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		entry, ok := s.entries[correlationID]
		if !ok {
			return Entry{}, fmt.Errorf("response for %s: %w", correlationID, ErrNotFound)
		}
		return entry, nil
	}

	row := s.db.QueryRowContext(ctx, `
        SELECT correlation_id, stage, payload, created_at FROM flow.responses WHERE correlation_id=$1
    `, correlationID)
	var entry Entry
	if err := row.Scan(&entry.CorrelationID, &entry.Stage, &entry.Payload, &entry.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("response for %s: %w", correlationID, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("loading response: %w", err)
	}
	return entry, nil
}

// Delete removes the stored response for a correlation id. Deleting a
// missing id is not an error.
func (s *ResponseStore) Delete(ctx context.Context, correlationID string) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.entries, correlationID)
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM flow.responses WHERE correlation_id=$1`, correlationID); err != nil {
		return fmt.Errorf("deleting response: %w", err)
	}
	return nil
}

// Ping checks backend health. Always healthy for the memory backend.
func (s *ResponseStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements Store on SQLite. The run state is stored as a JSON
// text column.
type SqliteStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configures the SQLite connection.
type SqliteOptions struct {
	Path      string
	TableName string // Default "runs"
}

// NewSqliteStore opens the database and ensures the schema exists.
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "runs"
	}

	s := &SqliteStore{db: db, tableName: tableName}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			workflow TEXT NOT NULL,
			input TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_thread_id ON %s (thread_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Save stores a record, replacing any previous version with the same ID.
func (s *SqliteStore) Save(ctx context.Context, record *RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no ID")
	}
	stateJSON, err := json.Marshal(record.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, thread_id, workflow, input, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			thread_id = excluded.thread_id,
			workflow = excluded.workflow,
			input = excluded.input,
			state = excluded.state,
			created_at = excluded.created_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.ThreadID,
		record.Workflow,
		record.Input,
		string(stateJSON),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SqliteStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, workflow, input, state, created_at
		FROM %s
		WHERE id = ?
	`, s.tableName)

	var record RunRecord
	var stateJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.ThreadID,
		&record.Workflow,
		&record.Input,
		&stateJSON,
		&record.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load run record: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &record.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &record, nil
}

// ListByThread returns the thread's records ordered by creation time.
func (s *SqliteStore) ListByThread(ctx context.Context, threadID string) ([]*RunRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, workflow, input, state, created_at
		FROM %s
		WHERE thread_id = ?
		ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		var record RunRecord
		var stateJSON string
		if err := rows.Scan(
			&record.ID,
			&record.ThreadID,
			&record.Workflow,
			&record.Input,
			&stateJSON,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &record.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run records: %w", err)
	}
	if records == nil {
		records = []*RunRecord{}
	}
	return records, nil
}

// Delete removes one record. Deleting a missing record is not an error.
func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}
	return nil
}

// Clear removes every record of a thread.
func (s *SqliteStore) Clear(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to clear run records: %w", err)
	}
	return nil
}

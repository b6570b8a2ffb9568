// Package store persists pipeline run history and telemetry events to
// sqlite so runs can be inspected through the API after the process forgets
// them. The live registry stays authoritative while a pipeline exists; the
// store is write-behind history only.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-report-stream/internal/model"
)

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the history database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			id TEXT PRIMARY KEY,
			source TEXT,
			status TEXT,
			partition_count INTEGER,
			records_processed INTEGER,
			records_skipped INTEGER,
			error TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS pipeline_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pipeline_id TEXT,
			kind TEXT,
			level TEXT,
			message TEXT,
			details TEXT,
			created_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_pipeline ON pipeline_events(pipeline_id);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts or replaces one pipeline's run record.
func (s *Store) SaveRun(info model.PipelineInfo) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pipeline_runs
		 (id, source, status, partition_count, records_processed, records_skipped, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Source, string(info.Status), info.PartitionCount,
		info.RecordsProcessed, info.RecordsSkipped, info.Error,
		info.CreatedAt, info.UpdatedAt,
	)
	return err
}

// GetRun returns one stored run.
func (s *Store) GetRun(id string) (model.PipelineInfo, error) {
	row := s.db.QueryRow(
		`SELECT id, source, status, partition_count, records_processed, records_skipped, error, created_at, updated_at
		 FROM pipeline_runs WHERE id = ?`, id)
	var info model.PipelineInfo
	var status string
	err := row.Scan(&info.ID, &info.Source, &status, &info.PartitionCount,
		&info.RecordsProcessed, &info.RecordsSkipped, &info.Error,
		&info.CreatedAt, &info.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.PipelineInfo{}, model.ErrPipelineNotFound
	}
	if err != nil {
		return model.PipelineInfo{}, err
	}
	info.Status = model.PipelineStatus(status)
	return info, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]model.PipelineInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, source, status, partition_count, records_processed, records_skipped, error, created_at, updated_at
		 FROM pipeline_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.PipelineInfo
	for rows.Next() {
		var info model.PipelineInfo
		var status string
		if err := rows.Scan(&info.ID, &info.Source, &status, &info.PartitionCount,
			&info.RecordsProcessed, &info.RecordsSkipped, &info.Error,
			&info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, err
		}
		info.Status = model.PipelineStatus(status)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Event is one persisted telemetry event.
type Event struct {
	ID         int64                  `json:"id"`
	PipelineID string                 `json:"pipeline_id"`
	Kind       string                 `json:"kind"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// SaveEvent implements telemetry.Sink.
func (s *Store) SaveEvent(pipelineID, kind, level, message string, fields map[string]interface{}) error {
	var details []byte
	if fields != nil {
		var err error
		details, err = json.Marshal(fields)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO pipeline_events (pipeline_id, kind, level, message, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pipelineID, kind, level, message, string(details), time.Now().UTC())
	return err
}

// ListEvents returns the most recent events for a pipeline, newest first.
func (s *Store) ListEvents(pipelineID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, pipeline_id, kind, level, message, details, created_at
		 FROM pipeline_events WHERE pipeline_id = ? ORDER BY id DESC LIMIT ?`,
		pipelineID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var details string
		if err := rows.Scan(&ev.ID, &ev.PipelineID, &ev.Kind, &ev.Level, &ev.Message, &details, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if details != "" {
			if err := json.Unmarshal([]byte(details), &ev.Details); err != nil {
				ev.Details = map[string]interface{}{"raw": details}
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

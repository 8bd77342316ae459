package sink

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/logrelay/logrelay/internal/model"
)

// DuckDBConfig configures the embedded database sink.
type DuckDBConfig struct {
	// Path is the database file; empty means in-memory.
	Path string
	// Table receives the events. Defaults to "events".
	Table string
}

// DuckDBSink persists events into a DuckDB table, acting as the database
// destination.
type DuckDBSink struct {
	cfg DuckDBConfig
	db  *sql.DB
}

// NewDuckDBSink creates a DuckDB sink.
func NewDuckDBSink(cfg DuckDBConfig) *DuckDBSink {
	if cfg.Table == "" {
		cfg.Table = "events"
	}
	return &DuckDBSink{cfg: cfg}
}

// Name implements Sink.
func (s *DuckDBSink) Name() string { return "duckdb" }

// Start opens the database and creates the events table.
func (s *DuckDBSink) Start(ctx context.Context) error {
	db, err := sql.Open("duckdb", s.cfg.Path)
	if err != nil {
		return err
	}
	s.db = db
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.cfg.Table+` (
			id VARCHAR PRIMARY KEY,
			ts TIMESTAMP,
			level VARCHAR,
			message VARCHAR,
			fields JSON
		)`)
	return err
}

// Write implements Sink.
func (s *DuckDBSink) Write(ctx context.Context, ev *model.Event) error {
	fields, err := fieldsJSON(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+s.cfg.Table+` (id, ts, level, message, fields) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp, ev.Level.String(), ev.Message, fields)
	return err
}

// WriteBatch inserts the batch inside one transaction.
func (s *DuckDBSink) WriteBatch(ctx context.Context, batch model.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+s.cfg.Table+` (id, ts, level, message, fields) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, ev := range batch {
		fields, err := fieldsJSON(ev)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.Timestamp, ev.Level.String(), ev.Message, fields); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func fieldsJSON(ev *model.Event) (string, error) {
	m := make(map[string]any, ev.Len())
	for _, f := range ev.Fields() {
		m[f.Key] = f.Value
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Stop closes the database. It tolerates a Start that never ran.
func (s *DuckDBSink) Stop(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

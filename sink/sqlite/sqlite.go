// Package sqlite stores the per-node time-series in an embedded SQLite
// database, mirroring the influx sink's point schema so analyses work
// without a metrics daemon.
package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run   TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (run, key)
);
CREATE TABLE IF NOT EXISTS view_points (
	run     TEXT    NOT NULL,
	tick    INTEGER NOT NULL,
	node    INTEGER NOT NULL,
	cluster INTEGER NOT NULL,
	records TEXT    NOT NULL,
	PRIMARY KEY (run, tick, node)
);`

// Sink writes snapshots to a SQLite database file.
type Sink struct {
	db *sql.DB
}

// New opens (or creates) the database and ensures the schema. Failure
// to initialise is fatal.
func New(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: %v", lab.ErrSinkFatal, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite: %v", lab.ErrSinkFatal, err)
	}
	return &Sink{db: db}, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// EmitInfo stores the run configuration, one row per parameter.
func (s *Sink) EmitInfo(runID string, cfg lab.Config) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: sqlite: %v", lab.ErrSinkFatal, err)
	}
	defer tx.Rollback()
	for _, p := range cfg.Params() {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO runs (run, key, value) VALUES (?, ?, ?)`,
			runID, p.Key, p.Value); err != nil {
			return fmt.Errorf("%w: sqlite: %v", lab.ErrSinkFatal, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite: %v", lab.ErrSinkFatal, err)
	}
	return nil
}

// Emit stores one row per cluster member.
func (s *Sink) Emit(snap sim.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()
	for _, member := range snap.Members {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO view_points (run, tick, node, cluster, records)
			 VALUES (?, ?, ?, ?, ?)`,
			snap.RunID, snap.Tick, member.Index, member.Cluster,
			joinRecords(member.View)); err != nil {
			return fmt.Errorf("sqlite: insert point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func joinRecords(view []int) string {
	parts := make([]string, len(view))
	for i, idx := range view {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "-")
}

package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
	"github.com/wetware/lab/sink/sqlite"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.db")
	sink, err := sqlite.New(path)
	require.NoError(t, err)
	defer sink.Close()

	cfg := lab.Config{Ticks: 2, Repetitions: 1, MinNodes: 2, MaxNodes: 2, Step: 1, C: 8}
	require.NoError(t, sink.EmitInfo("run1", cfg))
	require.NoError(t, sink.Emit(sim.Snapshot{
		RunID:   "run1",
		Tick:    1,
		Cluster: 0,
		Members: []sim.NodeState{
			{Index: 0, Cluster: 0, View: []int{1, 2}},
			{Index: 1, Cluster: 0, View: nil},
		},
	}))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var records string
	require.NoError(t, db.QueryRow(
		`SELECT records FROM view_points WHERE run = ? AND tick = 1 AND node = 0`,
		"run1").Scan(&records))
	require.Equal(t, "1-2", records)

	require.NoError(t, db.QueryRow(
		`SELECT records FROM view_points WHERE run = ? AND tick = 1 AND node = 1`,
		"run1").Scan(&records))
	require.Equal(t, "", records)

	var ticks string
	require.NoError(t, db.QueryRow(
		`SELECT value FROM runs WHERE run = ? AND key = 'ticks'`, "run1").Scan(&ticks))
	require.Equal(t, "2", ticks)
}

func TestEmitInfoIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.db")
	sink, err := sqlite.New(path)
	require.NoError(t, err)
	defer sink.Close()

	cfg := lab.Config{Ticks: 1, Repetitions: 1, MinNodes: 1, MaxNodes: 1, Step: 1}
	require.NoError(t, sink.EmitInfo("run1", cfg))
	require.NoError(t, sink.EmitInfo("run1", cfg))
}

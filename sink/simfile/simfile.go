// Package simfile writes the reference on-disk snapshot layout: one
// YAML graph file per (run, tick) named {run}.{tick}.partition.sim
// under {folder}/{run}/, plus an info.sim with one key=value line per
// configuration item.
package simfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
)

// Sink writes snapshots under a base folder.
type Sink struct {
	folder string
}

// New creates the base folder. A folder that cannot be created is a
// refused initialisation, so the error is fatal.
func New(folder string) (*Sink, error) {
	if folder == "" {
		return nil, fmt.Errorf("%w: simfile: empty folder", lab.ErrSinkFatal)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("%w: simfile: %v", lab.ErrSinkFatal, err)
	}
	return &Sink{folder: folder}, nil
}

// EmitInfo writes {folder}/{run}/info.sim. An unwritable run directory
// makes the whole run pointless, so failures are fatal.
func (s *Sink) EmitInfo(runID string, cfg lab.Config) error {
	dir := filepath.Join(s.folder, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: simfile: %v", lab.ErrSinkFatal, err)
	}
	f, err := os.Create(filepath.Join(dir, "info.sim"))
	if err != nil {
		return fmt.Errorf("%w: simfile: %v", lab.ErrSinkFatal, err)
	}
	defer f.Close()
	for _, p := range cfg.Params() {
		if _, err := fmt.Fprintf(f, "%s=%s\n", p.Key, p.Value); err != nil {
			return fmt.Errorf("%w: simfile: %v", lab.ErrSinkFatal, err)
		}
	}
	return nil
}

// Emit writes the snapshot as one YAML document. Snapshots of sibling
// clusters at the same tick target the same file; each carries the full
// shared overlay, so the last writer's graph section is identical.
func (s *Sink) Emit(snap sim.Snapshot) error {
	name := snap.RunID + "." + strconv.Itoa(snap.Tick) + ".partition.sim"
	path := filepath.Join(s.folder, snap.RunID, name)
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("simfile: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("simfile: write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads one snapshot file back.
func ReadSnapshot(folder, runID string, tick int) (sim.Snapshot, error) {
	name := runID + "." + strconv.Itoa(tick) + ".partition.sim"
	data, err := os.ReadFile(filepath.Join(folder, runID, name))
	if err != nil {
		return sim.Snapshot{}, fmt.Errorf("simfile: read snapshot: %w", err)
	}
	var snap sim.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return sim.Snapshot{}, fmt.Errorf("simfile: parse snapshot: %w", err)
	}
	return snap, nil
}

// ReadRun loads every snapshot of a run in tick order, stopping at the
// first missing tick.
func ReadRun(folder, runID string) ([]sim.Snapshot, error) {
	var out []sim.Snapshot
	for tick := 1; ; tick++ {
		snap, err := ReadSnapshot(folder, runID, tick)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, err
		}
		out = append(out, snap)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("simfile: run %s has no snapshots under %s", runID, folder)
	}
	return out, nil
}

// Package memory is an in-process sink keeping every snapshot it is
// handed. Used by tests and by analyses that do not need files.
package memory

import (
	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
)

// Sink collects snapshots in emission order. The zero value is not
// usable; call New. Error fields, when set, are returned verbatim from
// the corresponding method — tests use them to exercise the runner's
// sink failure handling.
type Sink struct {
	Infos     map[string]lab.Config
	Snapshots []sim.Snapshot

	InfoErr error
	EmitErr error
}

// New returns an empty sink.
func New() *Sink {
	return &Sink{Infos: make(map[string]lab.Config)}
}

// EmitInfo records the run's configuration.
func (s *Sink) EmitInfo(runID string, cfg lab.Config) error {
	if s.InfoErr != nil {
		return s.InfoErr
	}
	s.Infos[runID] = cfg
	return nil
}

// Emit appends the snapshot.
func (s *Sink) Emit(snap sim.Snapshot) error {
	if s.EmitErr != nil {
		return s.EmitErr
	}
	s.Snapshots = append(s.Snapshots, snap)
	return nil
}

// Runs returns the run ids seen, in first-emission order.
func (s *Sink) Runs() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, snap := range s.Snapshots {
		if _, ok := seen[snap.RunID]; !ok {
			seen[snap.RunID] = struct{}{}
			out = append(out, snap.RunID)
		}
	}
	return out
}

// ByRun returns the snapshots of one run, in emission order.
func (s *Sink) ByRun(runID string) []sim.Snapshot {
	var out []sim.Snapshot
	for _, snap := range s.Snapshots {
		if snap.RunID == runID {
			out = append(out, snap)
		}
	}
	return out
}

// AtTick returns the snapshots of one run's tick, cluster id ascending.
func (s *Sink) AtTick(runID string, tick int) []sim.Snapshot {
	var out []sim.Snapshot
	for _, snap := range s.Snapshots {
		if snap.RunID == runID && snap.Tick == tick {
			out = append(out, snap)
		}
	}
	return out
}

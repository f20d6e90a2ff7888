// Package multi fans a snapshot stream out to several sinks.
package multi

import (
	"errors"

	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
)

type fanout []sim.Sink

// New combines sinks into one. Every sink sees every call; the first
// fatal error wins, non-fatal errors are joined.
func New(sinks ...sim.Sink) sim.Sink {
	return fanout(sinks)
}

func (f fanout) EmitInfo(runID string, cfg lab.Config) error {
	var errs []error
	for _, s := range f {
		if err := s.EmitInfo(runID, cfg); err != nil {
			if errors.Is(err, lab.ErrSinkFatal) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) Emit(snap sim.Snapshot) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(snap); err != nil {
			if errors.Is(err, lab.ErrSinkFatal) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package influx writes the time-series the reference tooling consumes:
// one point per node per tick on the view-convergence measurement, with
// the node's view as a dash-joined record string.
package influx

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
)

const (
	// Measurement matches what the downstream preprocessing queries.
	Measurement = "diagnostics.casm-pex-convergence.view.point"

	// InfoMeasurement carries the per-run configuration dump.
	InfoMeasurement = "diagnostics.casm-pex-convergence.info"
)

// Sink writes snapshots to an InfluxDB 1.x database.
type Sink struct {
	client   client.Client
	database string
}

// New dials the InfluxDB endpoint. A client that cannot be built is a
// refused initialisation, so the error is fatal.
func New(addr, database string) (*Sink, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{Addr: addr})
	if err != nil {
		return nil, fmt.Errorf("%w: influx: %v", lab.ErrSinkFatal, err)
	}
	return &Sink{client: c, database: database}, nil
}

// Close releases the underlying HTTP client.
func (s *Sink) Close() error {
	return s.client.Close()
}

// EmitInfo writes the run configuration as a single tagged point.
func (s *Sink) EmitInfo(runID string, cfg lab.Config) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: s.database})
	if err != nil {
		return fmt.Errorf("%w: influx: %v", lab.ErrSinkFatal, err)
	}
	tags := map[string]string{"run": runID}
	for _, p := range cfg.Params() {
		tags[p.Key] = p.Value
	}
	pt, err := client.NewPoint(InfoMeasurement, tags,
		map[string]interface{}{"value": 0.0}, time.Now())
	if err != nil {
		return fmt.Errorf("%w: influx: %v", lab.ErrSinkFatal, err)
	}
	bp.AddPoint(pt)
	if err := s.client.Write(bp); err != nil {
		return fmt.Errorf("%w: influx: %v", lab.ErrSinkFatal, err)
	}
	return nil
}

// Emit writes one point per cluster member. Emission failures here are
// not fatal: a dropped tick is tolerable in a metrics pipeline.
func (s *Sink) Emit(snap sim.Snapshot) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: s.database})
	if err != nil {
		return fmt.Errorf("influx: batch: %w", err)
	}
	now := time.Now()
	for _, member := range snap.Members {
		pt, err := client.NewPoint(Measurement, map[string]string{
			"node":    strconv.Itoa(member.Index),
			"records": joinRecords(member.View),
			"tick":    strconv.Itoa(snap.Tick),
			"run":     snap.RunID,
			"cluster": strconv.Itoa(member.Cluster),
		}, map[string]interface{}{"value": 0.0}, now)
		if err != nil {
			return fmt.Errorf("influx: point: %w", err)
		}
		bp.AddPoint(pt)
	}
	if err := s.client.Write(bp); err != nil {
		return fmt.Errorf("influx: write: %w", err)
	}
	return nil
}

// joinRecords renders a view as the dash-joined index string the
// preprocessing scripts split on, empty for an empty view.
func joinRecords(view []int) string {
	parts := make([]string, len(view))
	for i, idx := range view {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "-")
}

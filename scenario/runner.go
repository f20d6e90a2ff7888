// Package scenario drives full simulation scenarios: it owns the node
// arena, sweeps the node count, repeats runs, applies the partition
// schedule, and feeds every tick's snapshots to a sink.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wetware/lab"
	"github.com/wetware/lab/sim"
)

const tracerName = "github.com/wetware/lab/scenario"

// Runner executes one scenario: for each node count in the sweep, for
// each repetition, a fresh arena of nodes is built, cluster 0 is
// initialised with the configured topology, and ticks advance every
// live cluster in cluster-id order. Snapshots go to the sink; run
// paths go to the scenario index file when a folder is configured.
type Runner struct {
	cfg    lab.Config
	sink   sim.Sink
	folder string
	tracer trace.Tracer
}

// New validates the configuration and builds a runner. folder may be
// empty, in which case no scenario index file is written.
func New(cfg lab.Config, sink sim.Sink, folder string) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", lab.ErrConfig)
	}
	return &Runner{
		cfg:    cfg,
		sink:   sink,
		folder: folder,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Run executes the whole scenario. The single seeded PRNG stream makes
// two runs with equal seed, config, and schedule byte-identical, run
// ids included. A fatal sink error aborts the repetition it occurred
// in; the sweep continues with the next one and the aborts surface in
// Run's error so the process still exits non-zero.
func (r *Runner) Run(ctx context.Context) error {
	root := rand.New(rand.NewSource(r.cfg.Seed))
	scenarioID := runToken(root)

	index, err := r.openIndex(scenarioID)
	if err != nil {
		return err
	}
	if index != nil {
		defer index.Close()
	}

	var aborted int
	var lastErr error
	for n := r.cfg.MinNodes; n <= r.cfg.MaxNodes; n += r.cfg.Step {
		for rep := 0; rep < r.cfg.Repetitions; rep++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(root.Int63()))
			runID := runToken(rng)

			repCtx, span := r.tracer.Start(ctx, "scenario.repetition",
				trace.WithAttributes(
					attribute.String("run", runID),
					attribute.Int("nodes", n),
					attribute.Int("repetition", rep+1),
				))
			err := r.repetition(repCtx, runID, n, rng)
			span.End()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				slog.Error("repetition aborted", "run", runID, "nodes", n, "err", err)
				aborted++
				lastErr = err
				continue
			}

			if index != nil {
				if _, err := fmt.Fprintln(index, filepath.Join(r.folder, runID)); err != nil {
					return fmt.Errorf("append scenario index: %w", err)
				}
			}
			slog.Info("run finished", "run", runID, "nodes", n,
				"repetition", rep+1, "repetitions", r.cfg.Repetitions)
		}
	}
	if aborted > 0 {
		return fmt.Errorf("%d repetition(s) aborted, last: %w", aborted, lastErr)
	}
	return nil
}

// repetition executes a single run: arena, cluster 0, topology, then
// the tick loop with the partition schedule applied at tick start.
func (r *Runner) repetition(ctx context.Context, runID string, n int, rng *rand.Rand) error {
	if err := r.sink.EmitInfo(runID, r.cfg); err != nil {
		return fmt.Errorf("emit run info: %w", err)
	}

	// The arena: every node of the run, indexed by node index and
	// shared across all clusters the schedule will carve out.
	arena := make([]*lab.Node, n)
	for i := range arena {
		arena[i] = lab.NewNode(i)
	}

	c0 := sim.NewCluster(r.cfg, 0, sim.NewOverlay(), rng)
	c0.Adopt(arena)
	c0.InitTopology(r.cfg.Topology)
	clusters := []*sim.Cluster{c0}

	slog.Info("run started", "run", runID, "nodes", n, "ticks", r.cfg.Ticks)
	for tick := 1; tick <= r.cfg.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ev := range r.cfg.Partitions {
			if ev.Tick != tick {
				continue
			}
			if ev.Size > c0.Len() {
				return fmt.Errorf("%w: partition of %d nodes at tick %d, cluster 0 has %d",
					lab.ErrConfig, ev.Size, tick, c0.Len())
			}
			sibling, err := c0.Partition(c0.PartitionSample(ev.Size), len(clusters))
			if err != nil {
				return err
			}
			clusters = append(clusters, sibling)
			slog.Info("partitioned", "run", runID, "tick", tick,
				"cluster", sibling.ID(), "size", sibling.Len())
		}

		for _, cluster := range clusters {
			cluster.Tick()
			if err := r.sink.Emit(cluster.Snapshot(runID)); err != nil {
				if errors.Is(err, lab.ErrSinkFatal) {
					return fmt.Errorf("emit snapshot: %w", err)
				}
				slog.Warn("snapshot dropped", "run", runID, "tick", tick,
					"cluster", cluster.ID(), "err", err)
			}
		}
	}
	return nil
}

// openIndex creates the scenario index file and writes its header line:
// "min_nodes max_nodes repetitions step". Returns nil when no folder is
// configured.
func (r *Runner) openIndex(scenarioID string) (*os.File, error) {
	if r.folder == "" {
		return nil, nil
	}
	if err := os.MkdirAll(r.folder, 0o755); err != nil {
		return nil, fmt.Errorf("create scenario folder: %w", err)
	}
	path := filepath.Join(r.folder, scenarioID+".partition.pex.sim")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create scenario index: %w", err)
	}
	_, err = fmt.Fprintf(f, "%d %d %d %d\n",
		r.cfg.MinNodes, r.cfg.MaxNodes, r.cfg.Repetitions, r.cfg.Step)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("write scenario index header: %w", err)
	}
	return f, nil
}

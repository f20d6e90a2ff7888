package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wetware/lab/cmd/labsim/ui"
	"github.com/wetware/lab/config"
	"github.com/wetware/lab/scenario"
	"github.com/wetware/lab/sim"
	"github.com/wetware/lab/sink/influx"
	"github.com/wetware/lab/sink/multi"
	"github.com/wetware/lab/sink/simfile"
	"github.com/wetware/lab/sink/sqlite"
)

func simulateCmd() *cobra.Command {
	sc := config.Default()
	var (
		scenarioPath string
		folder       string
		influxAddr   string
		influxDB     string
		sqlitePath   string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a convergence scenario and emit per-tick snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioPath != "" {
				loaded, err := config.Load(scenarioPath)
				if err != nil {
					return err
				}
				// Flags set on the command line win over file values.
				overrideScenario(cmd, &loaded, sc)
				sc = loaded
			}
			cfg, err := sc.Config()
			if err != nil {
				return err
			}

			files, err := simfile.New(folder)
			if err != nil {
				return err
			}
			sinks := []sim.Sink{files}
			if influxAddr != "" {
				is, err := influx.New(influxAddr, influxDB)
				if err != nil {
					return err
				}
				defer is.Close()
				sinks = append(sinks, is)
			}
			if sqlitePath != "" {
				ss, err := sqlite.New(sqlitePath)
				if err != nil {
					return err
				}
				defer ss.Close()
				sinks = append(sinks, ss)
			}

			runner, err := scenario.New(cfg, multi.New(sinks...), folder)
			if err != nil {
				return err
			}
			if err := runner.Run(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("scenario finished, results under %s", ui.Accent(folder)))
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (flags override it)")
	cmd.Flags().StringVarP(&folder, "folder", "f", "out", "Output folder for snapshots and the scenario index")
	cmd.Flags().StringVar(&influxAddr, "influx", "", "InfluxDB address, e.g. http://localhost:8086")
	cmd.Flags().StringVar(&influxDB, "influx-db", "testground", "InfluxDB database name")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file for the time-series sink")

	cmd.Flags().IntVarP(&sc.Ticks, "ticks", "t", sc.Ticks, "Number of simulation ticks")
	cmd.Flags().IntVarP(&sc.Repetitions, "repetitions", "r", sc.Repetitions, "Independent runs per node count")
	cmd.Flags().IntVar(&sc.MinNodes, "min-nodes", sc.MinNodes, "Smallest node count of the sweep")
	cmd.Flags().IntVar(&sc.MaxNodes, "max-nodes", sc.MaxNodes, "Largest node count of the sweep")
	cmd.Flags().IntVar(&sc.Step, "step", sc.Step, "Sweep step over the node count")
	cmd.Flags().IntVar(&sc.Fanout, "fanout", sc.Fanout, "Peers contacted per node per tick")
	cmd.Flags().IntVar(&sc.C, "c", sc.C, "View capacity")
	cmd.Flags().StringVar(&sc.Topology, "topology", sc.Topology, "Initial topology: ring or rand")
	cmd.Flags().StringVar(&sc.Selection, "selection", sc.Selection, "Peer selection policy: rand or tail")
	cmd.Flags().StringVar(&sc.Propagation, "propagation", sc.Propagation, "Propagation policy: pushpull")
	cmd.Flags().StringVar(&sc.Merge, "merge", sc.Merge, "Merge policy: head")
	cmd.Flags().IntVar(&sc.H, "H", sc.H, "Healer: oldest entries protected in the head-shuffle")
	cmd.Flags().IntVar(&sc.S, "S", sc.S, "Swapper: freshest entries dropped on overflow")
	cmd.Flags().IntVar(&sc.R, "R", sc.R, "Retained-old: oldest entries kept before decay")
	cmd.Flags().Float64Var(&sc.D, "D", sc.D, "Decay probability in [0,1]")
	cmd.Flags().BoolVar(&sc.E, "E", sc.E, "Evict unreachable neighbours")
	cmd.Flags().StringSliceVarP(&sc.Partition, "partition", "p", nil, "Partition schedule entries tick:size")
	cmd.Flags().StringVar(&sc.PartitionType, "partition-type", sc.PartitionType, "Partition sampling: rand or lineal")
	cmd.Flags().Int64Var(&sc.Seed, "seed", sc.Seed, "Deterministic PRNG seed")

	return cmd
}

// overrideScenario copies every flag the user set explicitly from the
// flag-bound scenario over the file-loaded one.
func overrideScenario(cmd *cobra.Command, dst *config.Scenario, flags config.Scenario) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("ticks") {
		dst.Ticks = flags.Ticks
	}
	if set("repetitions") {
		dst.Repetitions = flags.Repetitions
	}
	if set("min-nodes") {
		dst.MinNodes = flags.MinNodes
	}
	if set("max-nodes") {
		dst.MaxNodes = flags.MaxNodes
	}
	if set("step") {
		dst.Step = flags.Step
	}
	if set("fanout") {
		dst.Fanout = flags.Fanout
	}
	if set("c") {
		dst.C = flags.C
	}
	if set("topology") {
		dst.Topology = flags.Topology
	}
	if set("selection") {
		dst.Selection = flags.Selection
	}
	if set("propagation") {
		dst.Propagation = flags.Propagation
	}
	if set("merge") {
		dst.Merge = flags.Merge
	}
	if set("H") {
		dst.H = flags.H
	}
	if set("S") {
		dst.S = flags.S
	}
	if set("R") {
		dst.R = flags.R
	}
	if set("D") {
		dst.D = flags.D
	}
	if set("E") {
		dst.E = flags.E
	}
	if set("partition") {
		dst.Partition = flags.Partition
	}
	if set("partition-type") {
		dst.PartitionType = flags.PartitionType
	}
	if set("seed") {
		dst.Seed = flags.Seed
	}
}

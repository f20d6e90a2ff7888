package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wetware/lab/analysis"
	"github.com/wetware/lab/cmd/labsim/ui"
	"github.com/wetware/lab/sink/simfile"
)

func analyzeCmd() *cobra.Command {
	var (
		folder string
		every  int
	)

	cmd := &cobra.Command{
		Use:   "analyze <run-id>",
		Short: "Print convergence metrics for a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			snaps, err := simfile.ReadRun(folder, runID)
			if err != nil {
				return err
			}

			headers := []string{"tick", "nodes", "edges", "components", "clustering", "mean path", "dead links"}
			var rows [][]string
			for i, snap := range snaps {
				if every > 1 && (i+1)%every != 0 && i != len(snaps)-1 {
					continue
				}
				cc, err := analysis.ClusteringCoefficient(snap)
				if err != nil {
					return err
				}
				pth, err := analysis.MeanShortestPath(snap)
				if err != nil {
					return err
				}
				comps, err := analysis.Components(snap)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.Itoa(snap.Tick),
					strconv.Itoa(len(snap.Graph.Nodes)),
					strconv.Itoa(len(snap.Graph.Edges)),
					strconv.Itoa(len(comps)),
					fmt.Sprintf("%.4f", cc),
					fmt.Sprintf("%.2f", pth),
					strconv.Itoa(analysis.DeadLinks(snap)),
				})
			}

			fmt.Println(ui.Bold("run ") + ui.Accent(runID))
			fmt.Println(ui.Table(headers, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "out", "Folder the run was recorded under")
	cmd.Flags().IntVar(&every, "every", 1, "Only print every Nth tick (the last tick always prints)")
	return cmd
}

package analysis_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wetware/lab"
	"github.com/wetware/lab/analysis"
	"github.com/wetware/lab/scenario"
	"github.com/wetware/lab/sim"
	"github.com/wetware/lab/sink/memory"
)

// triangleSnapshot is a 4-node overlay: a directed triangle 0-1-2 plus
// a pendant vertex 3 attached to 0, with 3 labelled into cluster 1.
func triangleSnapshot() sim.Snapshot {
	return sim.Snapshot{
		RunID:   "test",
		Tick:    1,
		Cluster: 0,
		Graph: sim.GraphState{
			Nodes: []sim.VertexState{
				{ID: 0, Cluster: 0},
				{ID: 1, Cluster: 0},
				{ID: 2, Cluster: 0},
				{ID: 3, Cluster: 1},
			},
			Edges: [][2]int{{0, 1}, {0, 3}, {1, 2}, {2, 0}},
		},
	}
}

func TestClusteringCoefficient(t *testing.T) {
	cc, err := analysis.ClusteringCoefficient(triangleSnapshot())
	require.NoError(t, err)
	// Vertices 1 and 2 sit in a closed pair (coefficient 1); vertex 0
	// has neighbours {1, 2, 3} with one closed pair of three (1/3);
	// vertex 3 has a single neighbour (0). Mean = (1/3 + 1 + 1 + 0)/4.
	require.InDelta(t, (1.0/3+1+1+0)/4, cc, 1e-9)
}

func TestComponentsAndConnectivity(t *testing.T) {
	snap := triangleSnapshot()
	connected, err := analysis.WeaklyConnected(snap)
	require.NoError(t, err)
	require.True(t, connected)

	// Cutting the pendant edge splits off vertex 3.
	snap.Graph.Edges = [][2]int{{0, 1}, {1, 2}, {2, 0}}
	comps, err := analysis.Components(snap)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	require.Equal(t, []int{0, 1, 2}, comps[0])
	require.Equal(t, []int{3}, comps[1])
}

func TestMeanShortestPath(t *testing.T) {
	// Undirected path 0-1-2: pairs at distance 1,1,2 in both orders.
	snap := sim.Snapshot{
		Graph: sim.GraphState{
			Nodes: []sim.VertexState{{ID: 0}, {ID: 1}, {ID: 2}},
			Edges: [][2]int{{0, 1}, {1, 2}},
		},
	}
	pth, err := analysis.MeanShortestPath(snap)
	require.NoError(t, err)
	require.InDelta(t, 8.0/6, pth, 1e-9)
}

func TestDegreeHistogram(t *testing.T) {
	hist := analysis.DegreeHistogram(triangleSnapshot())
	require.Equal(t, map[int]int{0: 1, 1: 2, 2: 1}, hist)
}

func TestDeadLinks(t *testing.T) {
	snap := triangleSnapshot()
	require.Equal(t, 1, analysis.DeadLinks(snap))
	require.Equal(t, 1, analysis.ClusterDeadLinks(snap, 0))
	require.Equal(t, 0, analysis.ClusterDeadLinks(snap, 1))
}

func TestPartitionResistance(t *testing.T) {
	snap := triangleSnapshot()
	rng := rand.New(rand.NewSource(1))
	resistance, err := analysis.PartitionResistance(snap, 3, rng)
	require.NoError(t, err)
	require.Len(t, resistance, 99)
	for _, v := range resistance {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

// A ring under plain head-merge gossip mixes into a sparse random
// graph: clustering drops well below the dense regime while the
// overlay stays weakly connected and paths collapse. The node count
// keeps c well below N; with c close to N the overlay approaches the
// complete graph and clustering is trivially high.
func TestRingConverges(t *testing.T) {
	cfg := lab.Config{
		Ticks:       50,
		Repetitions: 1,
		MinNodes:    120,
		MaxNodes:    120,
		Step:        1,
		Fanout:      1,
		C:           8,
		Topology:    lab.TopologyRing,
		Seed:        1,
	}
	sink := memory.New()
	runner, err := scenario.New(cfg, sink, "")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	runs := sink.Runs()
	require.Len(t, runs, 1)
	snaps := sink.ByRun(runs[0])
	final := snaps[len(snaps)-1]
	require.Equal(t, cfg.Ticks, final.Tick)

	cc, err := analysis.ClusteringCoefficient(final)
	require.NoError(t, err)
	require.Less(t, cc, 0.2, "overlay still clustered after %d ticks", cfg.Ticks)

	connected, err := analysis.WeaklyConnected(final)
	require.NoError(t, err)
	require.True(t, connected, "overlay lost weak connectivity")

	pth, err := analysis.MeanShortestPath(final)
	require.NoError(t, err)
	require.Less(t, pth, 5.0, "paths did not collapse from the ring's N/4")
}

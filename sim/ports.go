package sim

import "github.com/wetware/lab"

// NodeState is one cluster member inside a snapshot: its index, its
// cluster label, and its view targets in view order.
type NodeState struct {
	Index   int   `yaml:"id"`
	Cluster int   `yaml:"cluster"`
	View    []int `yaml:"view,flow"`
}

// VertexState is one overlay vertex inside a snapshot.
type VertexState struct {
	ID      int `yaml:"id"`
	Cluster int `yaml:"cluster"`
}

// GraphState is the full overlay at snapshot time: every vertex with its
// cluster label and every directed edge, both in ascending order.
type GraphState struct {
	Nodes []VertexState `yaml:"nodes"`
	Edges [][2]int      `yaml:"edges,flow"`
}

// Snapshot is what a cluster emits after each tick. Members lists only
// the emitting cluster's nodes; Graph is the whole shared overlay, so a
// file written from any cluster's snapshot describes the entire run.
type Snapshot struct {
	RunID   string      `yaml:"run"`
	Tick    int         `yaml:"tick"`
	Cluster int         `yaml:"cluster"`
	Members []NodeState `yaml:"members"`
	Graph   GraphState  `yaml:"graph"`
}

// Sink consumes the snapshot stream of a run. EmitInfo is called once
// per run before the first tick; an error from it aborts the
// repetition. Emit is called once per cluster per tick, cluster ids
// ascending; an error wrapped with lab.ErrSinkFatal aborts the
// repetition, anything else is logged and the run continues.
type Sink interface {
	EmitInfo(runID string, cfg lab.Config) error
	Emit(snap Snapshot) error
}

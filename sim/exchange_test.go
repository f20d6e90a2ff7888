package sim

import (
	"math/rand"
	"testing"

	"github.com/wetware/lab"
)

// testCluster builds a cluster of n fresh nodes with the given config.
func testCluster(cfg lab.Config, n int) *Cluster {
	c := NewCluster(cfg, 0, NewOverlay(), rand.New(rand.NewSource(cfg.Seed)))
	nodes := make([]*lab.Node, n)
	for i := range nodes {
		nodes[i] = lab.NewNode(i)
	}
	c.Adopt(nodes)
	return c
}

// setView installs a view and mirrors it into the overlay, as the
// topology initialiser would.
func setView(c *Cluster, index int, view []lab.Record) {
	n := c.nodes[index]
	for _, r := range n.View {
		c.overlay.RemoveEdge(index, r.Index)
	}
	n.SetView(lab.CloneRecords(view))
	for _, r := range view {
		c.overlay.AddEdge(index, r.Index)
	}
}

func indices(view []lab.Record) []int {
	out := make([]int, len(view))
	for i, r := range view {
		out[i] = r.Index
	}
	return out
}

func TestMergeRecords(t *testing.T) {
	view := []lab.Record{{Index: 1, Hop: 2}, {Index: 2, Hop: 5}}
	buf := []lab.Record{
		{Index: 1, Hop: 7},  // staler copy: local entry survives
		{Index: 2, Hop: 1},  // fresher copy: replaces local entry
		{Index: 0, Hop: 0},  // self: filtered
		{Index: 3, Hop: 4},  // new: appended
	}

	merged := mergeRecords(view, buf, 0)
	want := []lab.Record{{Index: 1, Hop: 2}, {Index: 2, Hop: 1}, {Index: 3, Hop: 4}}
	if len(merged) != len(want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
	for i, r := range want {
		if merged[i] != r {
			t.Fatalf("merged[%d] = %v, want %v", i, merged[i], r)
		}
	}
}

// Merging a buffer equal to the current view must keep the index set.
func TestMergeIdempotent(t *testing.T) {
	view := []lab.Record{{Index: 3, Hop: 1}, {Index: 1, Hop: 4}, {Index: 7, Hop: 2}}
	merged := mergeRecords(view, lab.CloneRecords(view), 0)
	if got, want := indices(merged), indices(view); len(got) != len(want) {
		t.Fatalf("merged indices %v, want %v", got, want)
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("merged indices %v, want %v", got, want)
			}
		}
	}
}

func TestPullAgesSurvivors(t *testing.T) {
	cfg := lab.Config{C: 8}
	c := testCluster(cfg, 3)
	setView(c, 0, []lab.Record{{Index: 1, Hop: 1}})

	c.pull(c.nodes[0], []lab.Record{{Index: 2, Hop: 0}})
	for _, r := range c.nodes[0].View {
		if r.Hop < 1 {
			t.Fatalf("record %v not aged", r)
		}
	}
	// The pre-existing record aged from 1 to 2.
	for _, r := range c.nodes[0].View {
		if r.Index == 1 && r.Hop != 2 {
			t.Fatalf("record 1 hop = %d, want 2", r.Hop)
		}
	}
}

// With zero capacity the swap stage may drop the whole merged list.
func TestPullSwapEmptiesAtZeroCapacity(t *testing.T) {
	cfg := lab.Config{C: 0, S: 100}
	c := testCluster(cfg, 3)
	setView(c, 0, nil)

	c.pull(c.nodes[0], []lab.Record{{Index: 1, Hop: 0}, {Index: 2, Hop: 3}})
	if len(c.nodes[0].View) != 0 {
		t.Fatalf("view = %v, want empty at c=0", c.nodes[0].View)
	}
	if got := c.overlay.Out(0); len(got) != 0 {
		t.Fatalf("overlay out-edges = %v, want none", got)
	}
}

// With D=1 and R>0 the oldest segment is drained to meet capacity
// before any younger entry is dropped.
func TestPullDecayDrainsOldestFirst(t *testing.T) {
	cfg := lab.Config{C: 4, R: 3, D: 1}
	c := testCluster(cfg, 10)
	setView(c, 0, []lab.Record{
		{Index: 1, Hop: 50}, {Index: 2, Hop: 60}, {Index: 3, Hop: 70},
	})

	// Three young incoming entries push the merged list to 6 > c=4.
	c.pull(c.nodes[0], []lab.Record{
		{Index: 4, Hop: 1}, {Index: 5, Hop: 1}, {Index: 6, Hop: 1},
	})

	view := c.nodes[0].View
	if len(view) > cfg.C {
		t.Fatalf("view size %d exceeds capacity %d", len(view), cfg.C)
	}
	for _, young := range []int{4, 5, 6} {
		found := false
		for _, r := range view {
			if r.Index == young {
				found = true
			}
		}
		if !found {
			t.Fatalf("young entry %d dropped before oldest were drained: %v", young, view)
		}
	}
}

// Retained-old is clamped by capacity: even with D=0 failing every
// decay draw, the installed view stays within c.
func TestPullRetainClampedByCapacity(t *testing.T) {
	cfg := lab.Config{C: 2, R: 10, D: 0}
	c := testCluster(cfg, 10)
	setView(c, 0, []lab.Record{
		{Index: 1, Hop: 5}, {Index: 2, Hop: 6}, {Index: 3, Hop: 7},
	})

	c.pull(c.nodes[0], []lab.Record{{Index: 4, Hop: 1}})
	if len(c.nodes[0].View) > cfg.C {
		t.Fatalf("view size %d exceeds capacity %d", len(c.nodes[0].View), cfg.C)
	}
}

func TestSendBuffer(t *testing.T) {
	cfg := lab.Config{C: 4, H: 0}
	c := testCluster(cfg, 5)
	setView(c, 0, []lab.Record{
		{Index: 1, Hop: 1}, {Index: 2, Hop: 2}, {Index: 3, Hop: 3},
	})

	buf := c.sendBuffer(c.nodes[0])
	// c/2 = 2 view entries plus the fresh self-record.
	if len(buf) != 3 {
		t.Fatalf("buffer size %d, want 3", len(buf))
	}
	self := buf[len(buf)-1]
	if self.Index != 0 || self.Hop != 0 {
		t.Fatalf("buffer tail %v, want fresh self-record", self)
	}

	// The buffer must be a private copy.
	buf[0].Hop = 99
	for _, r := range c.nodes[0].View {
		if r.Hop == 99 {
			t.Fatal("send buffer aliases the sender's view")
		}
	}
}

// With H at least the view length nothing is shuffled: the write-back
// is the stable hop-descending order, deterministic across runs.
func TestSendBufferLargeHealerIsDeterministic(t *testing.T) {
	cfg := lab.Config{C: 8, H: 10}
	view := []lab.Record{
		{Index: 1, Hop: 9}, {Index: 2, Hop: 7}, {Index: 3, Hop: 7}, {Index: 4, Hop: 1},
	}

	c := testCluster(cfg, 5)
	setView(c, 0, view)
	c.sendBuffer(c.nodes[0])

	want := []int{1, 2, 3, 4} // already hop-descending, ties in view order
	got := indices(c.nodes[0].View)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("view order %v, want %v", got, want)
		}
	}
}

func TestPullPatchesOverlay(t *testing.T) {
	cfg := lab.Config{C: 2, S: 1}
	c := testCluster(cfg, 10)
	setView(c, 0, []lab.Record{{Index: 1, Hop: 1}, {Index: 2, Hop: 2}})

	c.pull(c.nodes[0], []lab.Record{{Index: 3, Hop: 0}, {Index: 4, Hop: 0}})

	want := make(map[int]struct{})
	for _, r := range c.nodes[0].View {
		want[r.Index] = struct{}{}
	}
	got := c.overlay.Out(0)
	if len(got) != len(want) {
		t.Fatalf("overlay out-edges %v, view %v", got, c.nodes[0].View)
	}
	for _, v := range got {
		if _, ok := want[v]; !ok {
			t.Fatalf("overlay edge 0→%d has no view entry", v)
		}
	}
}

// Churn a small cluster and verify the §8 structural invariants hold
// after every tick, across the H/S/R/D parameter grid.
func TestTickPreservesInvariants(t *testing.T) {
	grid := []lab.Config{
		{C: 8, Fanout: 1},
		{C: 8, Fanout: 2, H: 2},
		{C: 8, Fanout: 2, S: 2},
		{C: 8, Fanout: 3, H: 1, S: 1, R: 3, D: 0.5},
		{C: 4, Fanout: 2, H: 4, S: 4, R: 4, D: 1},
		{C: 0, Fanout: 1},
	}
	for gi, cfg := range grid {
		cfg.Seed = int64(gi + 1)
		c := testCluster(cfg, 8)
		c.InitTopology(lab.TopologyRing)
		for tick := 0; tick < 20; tick++ {
			c.Tick()
			if err := c.Validate(); err != nil {
				t.Fatalf("grid %d tick %d: %v", gi, tick+1, err)
			}
		}
	}
}

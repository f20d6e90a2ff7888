package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/wetware/lab"
	"github.com/wetware/lab/internal/check"
)

// Cluster is a connected component of the simulation: the nodes that
// can still resolve each other, the shared overlay graph, and the
// configuration driving the exchanges. Splitting a cluster produces a
// sibling that shares the overlay and the PRNG but not the node map.
type Cluster struct {
	cfg     lab.Config
	id      int
	tick    int
	nodes   map[int]*lab.Node
	overlay *Overlay
	rng     *rand.Rand
}

// NewCluster creates an empty cluster. The rng is the single run-wide
// PRNG; sharing it across sibling clusters keeps the draw order fixed.
func NewCluster(cfg lab.Config, id int, overlay *Overlay, rng *rand.Rand) *Cluster {
	return &Cluster{
		cfg:     cfg,
		id:      id,
		nodes:   make(map[int]*lab.Node),
		overlay: overlay,
		rng:     rng,
	}
}

// ID returns the cluster id.
func (c *Cluster) ID() int { return c.id }

// CurrentTick returns how many ticks this cluster has completed.
func (c *Cluster) CurrentTick() int { return c.tick }

// Len returns the number of nodes currently inside the cluster.
func (c *Cluster) Len() int { return len(c.nodes) }

// Node returns the member with the given index, if present.
func (c *Cluster) Node(index int) (*lab.Node, bool) {
	n, ok := c.nodes[index]
	return n, ok
}

// Members returns the member indices in ascending order.
func (c *Cluster) Members() []int {
	out := make([]int, 0, len(c.nodes))
	for i := range c.nodes {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Adopt takes ownership of the nodes: they join the member map, their
// cluster back-reference moves here, and their overlay vertices are
// (re)labelled with this cluster's id. Views are left untouched.
func (c *Cluster) Adopt(nodes []*lab.Node) {
	for _, n := range nodes {
		c.nodes[n.Index] = n
		n.Cluster = c.id
		c.overlay.AddVertex(n.Index, c.id)
	}
}

// Tick advances every member once, index ascending. Each node selects
// fanout records; a record that resolves inside the cluster triggers a
// push-pull exchange, one that does not is skipped — or evicted from
// view and overlay when the E flag is set. Serial and deterministic for
// a fixed seed.
func (c *Cluster) Tick() {
	for _, idx := range c.Members() {
		u := c.nodes[idx]
		for _, r := range u.Select(c.cfg.Selection, c.cfg.Fanout, c.rng) {
			v, ok := c.nodes[r.Index]
			if !ok {
				// The peer is in another partition or otherwise absent.
				if c.cfg.E && u.Remove(r.Index) {
					c.overlay.RemoveEdge(u.Index, r.Index)
				}
				continue
			}
			if c.cfg.Propagation == lab.PropagationPushPull {
				c.exchange(u, v)
			}
		}
	}
	c.tick++
}

// Partition moves the given members into a freshly created sibling
// cluster with the same configuration and overlay handle. View entries
// are not rewritten: cross-cluster records stay behind as dead links
// until E or decay removes them.
func (c *Cluster) Partition(indices []int, id int) (*Cluster, error) {
	moved := make([]*lab.Node, 0, len(indices))
	for _, idx := range indices {
		n, ok := c.nodes[idx]
		if !ok {
			return nil, fmt.Errorf("%w: partition of node %d not in cluster %d", lab.ErrConfig, idx, c.id)
		}
		moved = append(moved, n)
	}
	sibling := NewCluster(c.cfg, id, c.overlay, c.rng)
	sibling.tick = c.tick
	sibling.Adopt(moved)
	for _, n := range moved {
		delete(c.nodes, n.Index)
	}
	return sibling, nil
}

// PartitionSample draws size member indices for a partition event under
// the configured partition type: a uniform sample without replacement,
// or the lowest-indexed prefix. size is clamped to the member count.
func (c *Cluster) PartitionSample(size int) []int {
	members := c.Members()
	if size > len(members) {
		size = len(members)
	}
	switch c.cfg.PartitionType {
	case lab.PartitionLineal:
		return members[:size]
	default:
		out := make([]int, 0, size)
		for _, i := range c.rng.Perm(len(members))[:size] {
			out = append(out, members[i])
		}
		return out
	}
}

// Snapshot captures the cluster for the sink: its members with their
// views, plus the full shared overlay, everything in ascending order.
func (c *Cluster) Snapshot(runID string) Snapshot {
	snap := Snapshot{
		RunID:   runID,
		Tick:    c.tick,
		Cluster: c.id,
	}
	for _, idx := range c.Members() {
		n := c.nodes[idx]
		snap.Members = append(snap.Members, NodeState{
			Index:   n.Index,
			Cluster: n.Cluster,
			View:    n.ViewIndices(),
		})
	}
	for _, id := range c.overlay.Vertices() {
		cluster, _ := c.overlay.ClusterOf(id)
		snap.Graph.Nodes = append(snap.Graph.Nodes, VertexState{ID: id, Cluster: cluster})
	}
	snap.Graph.Edges = c.overlay.Edges()
	return snap
}

// Validate checks the structural invariants for every member: view
// bounded by c, distinct indices, no self-entry, overlay out-edges
// equal to the view targets, and a matching vertex label. Any failure
// wraps lab.ErrInvariant and must be treated as fatal.
func (c *Cluster) Validate() error {
	for _, idx := range c.Members() {
		n := c.nodes[idx]
		if len(n.View) > c.cfg.C {
			return fmt.Errorf("%w: node %d view has %d entries, capacity %d",
				lab.ErrInvariant, idx, len(n.View), c.cfg.C)
		}
		seen := make(map[int]struct{}, len(n.View))
		for _, r := range n.View {
			if r.Index == n.Index {
				return fmt.Errorf("%w: node %d holds a self-entry", lab.ErrInvariant, idx)
			}
			if _, dup := seen[r.Index]; dup {
				return fmt.Errorf("%w: node %d holds duplicate entry %d", lab.ErrInvariant, idx, r.Index)
			}
			seen[r.Index] = struct{}{}
		}
		targets := c.overlay.Out(idx)
		if len(targets) != len(seen) {
			return fmt.Errorf("%w: node %d overlay degree %d, view size %d",
				lab.ErrInvariant, idx, len(targets), len(seen))
		}
		for _, v := range targets {
			if _, ok := seen[v]; !ok {
				return fmt.Errorf("%w: overlay edge %d→%d has no view entry", lab.ErrInvariant, idx, v)
			}
		}
		if label, ok := c.overlay.ClusterOf(idx); !ok || label != c.id {
			return fmt.Errorf("%w: node %d labelled cluster %d, member of %d",
				lab.ErrInvariant, idx, label, c.id)
		}
		check.Assertf(n.Cluster == c.id, "node %d back-reference %d != cluster %d", idx, n.Cluster, c.id)
	}
	return nil
}

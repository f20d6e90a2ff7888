package lab

import (
	"math/rand"
	"sort"
)

// Node is a simulation participant. View is the bounded, de-duplicated
// record list it keeps about other nodes; order is significant — the
// head is freshest after a head merge. Cluster is the id of the cluster
// the node currently belongs to.
type Node struct {
	Index   int
	View    []Record
	Cluster int
}

// NewNode creates a node with an empty view and no cluster assignment.
func NewNode(index int) *Node {
	return &Node{Index: index, Cluster: -1}
}

// Record returns the fresh self-record appended to every push buffer.
func (n *Node) Record() Record {
	return Record{Index: n.Index, Hop: 0}
}

// Append adds a record to the tail of the view. The caller is
// responsible for keeping indices unique.
func (n *Node) Append(r Record) {
	n.View = append(n.View, r)
}

// Remove drops the record pointing at index, reporting whether one was
// present.
func (n *Node) Remove(index int) bool {
	for i, r := range n.View {
		if r.Index == index {
			n.View = append(n.View[:i], n.View[i+1:]...)
			return true
		}
	}
	return false
}

// SetView replaces the whole view. Used after a merge pipeline has
// produced the next view; ownership of the slice passes to the node.
func (n *Node) SetView(view []Record) {
	n.View = view
}

// ViewIndices returns the target indices in view order.
func (n *Node) ViewIndices() []int {
	out := make([]int, len(n.View))
	for i, r := range n.View {
		out[i] = r.Index
	}
	return out
}

// Select picks fanout records from the view under the given policy.
// When fanout exceeds the view length, all entries are returned. The
// returned records are copies; mutating them does not touch the view.
func (n *Node) Select(policy Selection, fanout int, rng *rand.Rand) []Record {
	k := fanout
	if k > len(n.View) {
		k = len(n.View)
	}
	switch policy {
	case SelectionRand:
		// Sample without replacement.
		out := make([]Record, 0, k)
		for _, i := range rng.Perm(len(n.View))[:k] {
			out = append(out, n.View[i])
		}
		return out
	case SelectionTail:
		// Oldest first; stable so ties keep view order across a run.
		sorted := CloneRecords(n.View)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hop > sorted[j].Hop })
		return sorted[:k]
	}
	return nil
}

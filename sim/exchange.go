package sim

import (
	"sort"

	"github.com/wetware/lab"
	"github.com/wetware/lab/internal/check"
)

// exchange performs one symmetric push-pull between u and v. Both send
// buffers are built first (the push side mutates the sender's view via
// the head-shuffle), then each side merges the buffer it received. The
// pair's mutation completes before the tick loop moves on, so no third
// party ever observes a half-applied exchange.
func (c *Cluster) exchange(u, v *lab.Node) {
	fromU := c.sendBuffer(u)
	fromV := c.sendBuffer(v)
	c.pull(u, fromV)
	c.pull(v, fromU)
}

// sendBuffer prepares n's push buffer. The view is first re-ordered as
// shuffled-younger || oldest, protecting the min(H, len) oldest entries
// from being sent; the buffer is a deep copy of the first c/2 entries
// with a fresh self-record appended.
func (c *Cluster) sendBuffer(n *lab.Node) []lab.Record {
	sorted := lab.CloneRecords(n.View)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hop > sorted[j].Hop })

	h := c.cfg.H
	if h > len(sorted) {
		h = len(sorted)
	}
	oldest, younger := sorted[:h], sorted[h:]
	c.rng.Shuffle(len(younger), func(i, j int) { younger[i], younger[j] = younger[j], younger[i] })
	n.SetView(append(younger, oldest...))

	k := c.cfg.C / 2
	if k > len(n.View) {
		k = len(n.View)
	}
	buf := lab.CloneRecords(n.View[:k])
	return append(buf, n.Record())
}

// pull folds an incoming buffer into n's view: merge, swap, retain-old
// with probabilistic decay, then install the result, patch the overlay
// by exact set difference, and age every surviving record by one hop.
func (c *Cluster) pull(n *lab.Node, buf []lab.Record) {
	merged := mergeRecords(n.View, buf, n.Index)

	// Swap: drop the freshest entries while over capacity.
	s := c.cfg.S
	if over := len(merged) - c.cfg.C; s > over {
		s = over
	}
	if s < 0 {
		s = 0
	}
	merged = merged[s:]

	// Retain-old + decay. The retained segment is clamped by capacity
	// as well as length so the installed view never exceeds c even
	// when every decay draw fails.
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Hop > merged[j].Hop })
	r := c.cfg.R
	if r > len(merged) {
		r = len(merged)
	}
	if r > c.cfg.C {
		r = c.cfg.C
	}
	oldest := lab.CloneRecords(merged[:r])
	rest := lab.CloneRecords(merged[r:])
	c.rng.Shuffle(len(oldest), func(i, j int) { oldest[i], oldest[j] = oldest[j], oldest[i] })
	c.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	for len(oldest)+len(rest) > c.cfg.C && len(oldest) > 0 && c.rng.Float64() < c.cfg.D {
		oldest = oldest[:len(oldest)-1]
	}
	keep := c.cfg.C - len(oldest)
	if keep < 0 {
		keep = 0
	}
	if keep > len(rest) {
		keep = len(rest)
	}
	next := make([]lab.Record, 0, keep+len(oldest))
	next = append(next, rest[:keep]...)
	next = append(next, oldest...)
	check.Assertf(len(next) <= c.cfg.C, "view %d exceeds capacity %d after pull", len(next), c.cfg.C)

	// Install: patch the overlay with the exact index set difference,
	// then age the survivors.
	before := indexSet(n.View)
	after := indexSet(next)
	for idx := range before {
		if _, ok := after[idx]; !ok {
			c.overlay.RemoveEdge(n.Index, idx)
		}
	}
	for idx := range after {
		if _, ok := before[idx]; !ok {
			c.overlay.AddEdge(n.Index, idx)
		}
	}
	n.SetView(next)
	for i := range n.View {
		n.View[i].Hop++
	}
}

// mergeRecords produces the merged list: local entries survive unless
// the buffer carries a strictly fresher copy of the same index, then
// unseen buffer entries are appended in buffer order. Nothing with the
// local index ever enters the result.
func mergeRecords(view, buf []lab.Record, self int) []lab.Record {
	incoming := make(map[int]lab.Record, len(buf))
	for _, r := range buf {
		incoming[r.Index] = r
	}
	merged := make([]lab.Record, 0, len(view)+len(buf))
	kept := make(map[int]struct{}, len(view)+len(buf))
	for _, local := range view {
		remote, ok := incoming[local.Index]
		if !ok || local.Hop <= remote.Hop {
			merged = append(merged, local)
			kept[local.Index] = struct{}{}
		}
	}
	for _, remote := range buf {
		if remote.Index == self {
			continue
		}
		if _, ok := kept[remote.Index]; ok {
			continue
		}
		merged = append(merged, remote)
		kept[remote.Index] = struct{}{}
	}
	return merged
}

func indexSet(records []lab.Record) map[int]struct{} {
	set := make(map[int]struct{}, len(records))
	for _, r := range records {
		set[r.Index] = struct{}{}
	}
	return set
}

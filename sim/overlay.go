package sim

import "sort"

// Overlay is the directed graph mirroring the views: an edge u→v exists
// iff node u's view currently contains a record with index v. Vertices
// carry the id of the cluster their node belongs to. One Overlay is
// shared by a cluster and every sibling split off it, exactly as the
// views it mirrors are.
//
// Vertices are plain ints and mutation is lock-free: the simulation is
// single-threaded and exactly one node mutates the overlay per call.
type Overlay struct {
	out     map[int]map[int]struct{}
	in      map[int]map[int]struct{}
	cluster map[int]int
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		out:     make(map[int]map[int]struct{}),
		in:      make(map[int]map[int]struct{}),
		cluster: make(map[int]int),
	}
}

// AddVertex registers a vertex with its cluster label, relabelling if
// the vertex already exists.
func (o *Overlay) AddVertex(id, cluster int) {
	if _, ok := o.out[id]; !ok {
		o.out[id] = make(map[int]struct{})
		o.in[id] = make(map[int]struct{})
	}
	o.cluster[id] = cluster
}

// ClusterOf returns the cluster label of a vertex.
func (o *Overlay) ClusterOf(id int) (int, bool) {
	c, ok := o.cluster[id]
	return c, ok
}

// AddEdge inserts the directed edge u→v. Both endpoints must already be
// vertices; unknown endpoints are registered unlabelled (-1) so the
// bookkeeping never drops an edge silently.
func (o *Overlay) AddEdge(u, v int) {
	if _, ok := o.out[u]; !ok {
		o.AddVertex(u, -1)
	}
	if _, ok := o.out[v]; !ok {
		o.AddVertex(v, -1)
	}
	o.out[u][v] = struct{}{}
	o.in[v][u] = struct{}{}
}

// RemoveEdge deletes the directed edge u→v if present.
func (o *Overlay) RemoveEdge(u, v int) {
	if targets, ok := o.out[u]; ok {
		delete(targets, v)
	}
	if sources, ok := o.in[v]; ok {
		delete(sources, u)
	}
}

// HasEdge reports whether the directed edge u→v exists.
func (o *Overlay) HasEdge(u, v int) bool {
	_, ok := o.out[u][v]
	return ok
}

// Out returns u's edge targets in ascending order.
func (o *Overlay) Out(u int) []int {
	targets := make([]int, 0, len(o.out[u]))
	for v := range o.out[u] {
		targets = append(targets, v)
	}
	sort.Ints(targets)
	return targets
}

// In returns u's edge sources in ascending order.
func (o *Overlay) In(u int) []int {
	sources := make([]int, 0, len(o.in[u]))
	for v := range o.in[u] {
		sources = append(sources, v)
	}
	sort.Ints(sources)
	return sources
}

// Vertices returns all vertex ids in ascending order.
func (o *Overlay) Vertices() []int {
	ids := make([]int, 0, len(o.out))
	for id := range o.out {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Edges returns every directed edge, sorted by source then target.
func (o *Overlay) Edges() [][2]int {
	edges := make([][2]int, 0, len(o.out))
	for _, u := range o.Vertices() {
		for _, v := range o.Out(u) {
			edges = append(edges, [2]int{u, v})
		}
	}
	return edges
}

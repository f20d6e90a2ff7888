// Package analysis computes offline metrics over emitted snapshots:
// degree distributions, clustering, path lengths, connectivity,
// partition resistance, and dead-link counts. Graphs are rebuilt as
// lvlath graphs so the traversal machinery is shared with the rest of
// the ecosystem rather than reimplemented.
package analysis

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"

	"github.com/wetware/lab/sim"
)

// vertexID renders an overlay index as a lvlath vertex id.
func vertexID(idx int) string { return strconv.Itoa(idx) }

// Directed rebuilds the snapshot's overlay as a directed lvlath graph.
func Directed(snap sim.Snapshot) (*core.Graph, error) {
	return build(snap, true)
}

// Undirected rebuilds the snapshot's overlay with edge direction
// collapsed, the form most of the convergence metrics are defined on.
func Undirected(snap sim.Snapshot) (*core.Graph, error) {
	return build(snap, false)
}

func build(snap sim.Snapshot, directed bool) (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(directed))
	for _, v := range snap.Graph.Nodes {
		if err := g.AddVertex(vertexID(v.ID)); err != nil {
			return nil, fmt.Errorf("analysis: add vertex %d: %w", v.ID, err)
		}
	}
	for _, e := range snap.Graph.Edges {
		if !directed && g.HasEdge(vertexID(e[0]), vertexID(e[1])) {
			continue
		}
		if _, err := g.AddEdge(vertexID(e[0]), vertexID(e[1]), 0); err != nil {
			return nil, fmt.Errorf("analysis: add edge %v: %w", e, err)
		}
	}
	return g, nil
}

// DegreeHistogram returns counts of overlay out-degrees keyed by degree.
func DegreeHistogram(snap sim.Snapshot) map[int]int {
	degree := make(map[int]int, len(snap.Graph.Nodes))
	for _, v := range snap.Graph.Nodes {
		degree[v.ID] = 0
	}
	for _, e := range snap.Graph.Edges {
		degree[e[0]]++
	}
	hist := make(map[int]int)
	for _, d := range degree {
		hist[d]++
	}
	return hist
}

// ClusteringCoefficient computes the mean local clustering coefficient
// of the undirected overlay: for each vertex, the fraction of its
// neighbour pairs that are themselves connected.
func ClusteringCoefficient(snap sim.Snapshot) (float64, error) {
	g, err := Undirected(snap)
	if err != nil {
		return 0, err
	}
	ids := g.Vertices()
	if len(ids) == 0 {
		return 0, nil
	}
	var total float64
	for _, id := range ids {
		neighbors, err := g.NeighborIDs(id)
		if err != nil {
			return 0, fmt.Errorf("analysis: neighbors of %s: %w", id, err)
		}
		neighbors = dedup(neighbors)
		k := len(neighbors)
		if k < 2 {
			continue
		}
		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if g.HasEdge(neighbors[i], neighbors[j]) {
					links++
				}
			}
		}
		total += 2 * float64(links) / float64(k*(k-1))
	}
	return total / float64(len(ids)), nil
}

// WeaklyConnected reports whether the overlay is one weak component.
func WeaklyConnected(snap sim.Snapshot) (bool, error) {
	components, err := Components(snap)
	if err != nil {
		return false, err
	}
	return len(components) == 1, nil
}

// Components returns the weakly connected components of the overlay,
// largest first, each as a sorted list of overlay indices.
func Components(snap sim.Snapshot) ([][]int, error) {
	g, err := Undirected(snap)
	if err != nil {
		return nil, err
	}
	return components(g)
}

func components(g *core.Graph) ([][]int, error) {
	var out [][]int
	visited := make(map[string]struct{})
	ids := g.Vertices()
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := visited[id]; ok {
			continue
		}
		res, err := bfs.BFS(g, id)
		if err != nil {
			return nil, fmt.Errorf("analysis: bfs from %s: %w", id, err)
		}
		component := make([]int, 0, len(res.Order))
		for _, v := range res.Order {
			visited[v] = struct{}{}
			idx, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("analysis: vertex id %q: %w", v, err)
			}
			component = append(component, idx)
		}
		sort.Ints(component)
		out = append(out, component)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out, nil
}

// MeanShortestPath averages the unweighted shortest-path length over
// every reachable ordered pair of the undirected overlay.
func MeanShortestPath(snap sim.Snapshot) (float64, error) {
	g, err := Undirected(snap)
	if err != nil {
		return 0, err
	}
	var sum, pairs float64
	for _, src := range g.Vertices() {
		res, err := bfs.BFS(g, src)
		if err != nil {
			return 0, fmt.Errorf("analysis: bfs from %s: %w", src, err)
		}
		for dst, depth := range res.Depth {
			if dst == src {
				continue
			}
			sum += float64(depth)
			pairs++
		}
	}
	if pairs == 0 {
		return 0, nil
	}
	return sum / pairs, nil
}

// DeadLinks counts overlay edges that cross cluster labels: view
// entries whose target sits in another partition and can no longer be
// resolved.
func DeadLinks(snap sim.Snapshot) int {
	label := make(map[int]int, len(snap.Graph.Nodes))
	for _, v := range snap.Graph.Nodes {
		label[v.ID] = v.Cluster
	}
	count := 0
	for _, e := range snap.Graph.Edges {
		if label[e[0]] != label[e[1]] {
			count++
		}
	}
	return count
}

// ClusterDeadLinks counts dead links held by members of one cluster.
func ClusterDeadLinks(snap sim.Snapshot, cluster int) int {
	label := make(map[int]int, len(snap.Graph.Nodes))
	for _, v := range snap.Graph.Nodes {
		label[v.ID] = v.Cluster
	}
	count := 0
	for _, e := range snap.Graph.Edges {
		if label[e[0]] == cluster && label[e[1]] != cluster {
			count++
		}
	}
	return count
}

// PartitionResistance estimates, for each eviction percentage in
// [1, 99], the fraction of surviving nodes left outside the largest
// weak component after evicting that share of nodes uniformly at
// random, averaged over the given repetitions.
func PartitionResistance(snap sim.Snapshot, repetitions int, rng *rand.Rand) ([]float64, error) {
	base, err := Undirected(snap)
	if err != nil {
		return nil, err
	}
	ids := base.Vertices()
	sort.Strings(ids)
	n := len(ids)
	out := make([]float64, 0, 99)
	for p := 1; p < 100; p++ {
		evict := n * p / 100
		var total float64
		for rep := 0; rep < repetitions; rep++ {
			g := base.Clone()
			for _, i := range rng.Perm(n)[:evict] {
				if err := g.RemoveVertex(ids[i]); err != nil {
					return nil, fmt.Errorf("analysis: evict %s: %w", ids[i], err)
				}
			}
			comps, err := components(g)
			if err != nil {
				return nil, err
			}
			if len(comps) > 1 {
				outside := 0
				for _, c := range comps[1:] {
					outside += len(c)
				}
				total += float64(outside) / float64(n)
			}
		}
		out = append(out, total/float64(repetitions))
	}
	return out, nil
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

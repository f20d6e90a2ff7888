package sim

import (
	"math/rand"

	"github.com/wetware/lab"
)

// permutationSeed fixes the seeded-random-ring permutation independently
// of the scenario seed, so topologies stay comparable across runs.
const permutationSeed = 1234

// InitTopology wires the initial overlay: for every ordered pair (i, j)
// the generator deems neighbours, node i's view receives a record
// (j, hop=1) and the overlay gains the edge i→j. Both generators give
// every node in-degree 2 and out-degree 2.
func (c *Cluster) InitTopology(topology lab.Topology) {
	members := c.Members()
	var perm []int
	if topology == lab.TopologyRand {
		r := rand.New(rand.NewSource(permutationSeed))
		perm = r.Perm(len(members))
	}
	for i, iPos := range members {
		for j, jPos := range members {
			if i == j {
				continue
			}
			a, b := i, j
			if perm != nil {
				a, b = perm[i], perm[j]
			}
			if !ringNeighbors(a, b, len(members)) {
				continue
			}
			node := c.nodes[iPos]
			if len(node.View) >= c.cfg.C {
				continue
			}
			node.Append(lab.Record{Index: jPos, Hop: 1})
			c.overlay.AddEdge(iPos, jPos)
		}
	}
}

// ringNeighbors is the ring predicate: adjacent indices, or the two
// ends of the ring.
func ringNeighbors(i, j, n int) bool {
	if i+1 == j || j+1 == i {
		return true
	}
	if i == 0 && j == n-1 {
		return true
	}
	return j == 0 && i == n-1
}

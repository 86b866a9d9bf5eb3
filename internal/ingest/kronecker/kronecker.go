// Package kronecker generates a synthetic edge list with the
// Graph500-style recursive matrix (R-MAT) generator: each peer
// produces its share of edges independently, seeded from its rank so
// peers never collide, and emits both directions of every undirected
// edge as two tuples.
package kronecker

import (
	"fmt"
	"math/rand"

	"github.com/ashwin1596/gclabel/internal/gcerr"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// Initiator probabilities for the standard Graph500 R-MAT generator.
const (
	probA = 0.57
	probB = 0.19
	probC = 0.19
	probD = 0.05
)

// Options configures one peer's share of the generated graph.
type Options struct {
	Scale      int // vertices = 2^Scale
	EdgeFactor int // total edges = EdgeFactor * 2^Scale
	Rank       int
	Size       int
	// Seed, if non-zero, overrides the default rank-derived seed. Used
	// by tests that need a reproducible graph across runs.
	Seed int64
}

// Generate returns this peer's share of the graph's edges, each
// emitted as two tuples, (key=u, Pn=u, Pc=v) and (key=v, Pn=v, Pc=u), so the
// partitioner sees the full adjacency regardless of which endpoint a
// tuple's key happens to name. A peer whose share of edgefactor*2^scale
// rounds down to zero has no local segment to start with, which is a
// fatal input error rather than a silently empty producer.
func Generate(opts Options) ([]tuple.T, error) {
	totalEdges := int64(opts.EdgeFactor) * (int64(1) << uint(opts.Scale))
	myEdges := blockShare(totalEdges, opts.Rank, opts.Size)
	if myEdges == 0 {
		return nil, gcerr.NewInputError(opts.Rank, fmt.Errorf(
			"local segment empty at start: 0 of %d edges assigned across %d peers", totalEdges, opts.Size))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = int64(opts.Rank)*2654435761 + 1
	}
	rng := rand.New(rand.NewSource(seed))

	out := make([]tuple.T, 0, myEdges*2)
	for e := int64(0); e < myEdges; e++ {
		u, v := rmatEdge(rng, opts.Scale)
		if u == v {
			continue
		}
		out = append(out, tuple.T{Key: u, Pn: u, Pc: v})
		out = append(out, tuple.T{Key: v, Pn: v, Pc: u})
	}
	if len(out) == 0 {
		return nil, gcerr.NewInputError(opts.Rank, fmt.Errorf(
			"local segment empty at start: all %d assigned edges were self-loops", myEdges))
	}
	return out, nil
}

// rmatEdge recursively subdivides a 2^scale x 2^scale adjacency matrix
// into quadrants weighted (probA, probB, probC, probD), descending
// scale levels to pick one cell.
func rmatEdge(rng *rand.Rand, scale int) (uint64, uint64) {
	var u, v uint64
	for level := 0; level < scale; level++ {
		bitU, bitV := pickQuadrant(rng)
		u = (u << 1) | bitU
		v = (v << 1) | bitV
	}
	return u, v
}

func pickQuadrant(rng *rand.Rand) (uint64, uint64) {
	r := rng.Float64()
	switch {
	case r < probA:
		return 0, 0
	case r < probA+probB:
		return 0, 1
	case r < probA+probB+probC:
		return 1, 0
	default:
		return 1, 1
	}
}

func blockShare(n int64, rank, size int) int64 {
	base, rem := n/int64(size), n%int64(size)
	count := base
	if int64(rank) < rem {
		count++
	}
	return count
}

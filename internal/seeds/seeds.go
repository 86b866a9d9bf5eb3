// Package seeds implements the post-convergence step that turns a
// converged tuple segment into a set of component labels: exactly one
// tuple per distinct Pc, gathered onto a single coordinator peer.
package seeds

import (
	"sort"

	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// Extract normalises every tuple's Pn to its Pc, globally sorts by Pc,
// repartitions the locally-unique values by a splitter set derived
// from each peer's smallest surviving value so that every occurrence
// of a given Pc lands on the same peer, and finally gathers the
// deduplicated result onto root. Every peer must call Extract; only
// root's return value is meaningful, everyone else gets nil.
func Extract(g *collectives.Group, local []tuple.T, root int) ([]tuple.T, error) {
	normalized := make([]tuple.T, len(local))
	for i, t := range local {
		normalized[i] = tuple.T{Key: t.Key, Pn: t.Pc, Pc: t.Pc}
	}

	sorted, err := g.Sort(normalized, tuple.ByPc)
	if err != nil {
		return nil, err
	}
	uniq := uniqueByPc(sorted)

	firstPc := tuple.Inactive
	if len(uniq) > 0 {
		firstPc = uniq[0].Pc
	}
	gathered, err := g.TupleAllGather(tuple.T{Pc: firstPc})
	if err != nil {
		return nil, err
	}
	// Rank 0 never contributes a splitter: everything smaller than
	// every other peer's boundary belongs on rank 0 by construction.
	splitters := make([]tuple.Label, 0, len(gathered)-1)
	for r := 1; r < len(gathered); r++ {
		splitters = append(splitters, gathered[r].Pc)
	}

	send, counts := partitionBySplitters(uniq, splitters)
	recv, err := g.AllToAll(send, counts)
	if err != nil {
		return nil, err
	}

	sort.Slice(recv, func(i, j int) bool { return recv[i].Pc < recv[j].Pc })
	final := uniqueByPc(recv)

	return g.GatherV(final, root)
}

func uniqueByPc(sorted []tuple.T) []tuple.T {
	if len(sorted) == 0 {
		return nil
	}
	out := make([]tuple.T, 0, len(sorted))
	out = append(out, sorted[0])
	for _, t := range sorted[1:] {
		if t.Pc != out[len(out)-1].Pc {
			out = append(out, t)
		}
	}
	return out
}

func partitionBySplitters(uniq []tuple.T, splitters []tuple.Label) ([]tuple.T, []int) {
	size := len(splitters) + 1
	counts := make([]int, size)
	buckets := make([][]tuple.T, size)
	for _, t := range uniq {
		d := destination(t.Pc, splitters)
		buckets[d] = append(buckets[d], t)
		counts[d]++
	}
	send := make([]tuple.T, 0, len(uniq))
	for _, b := range buckets {
		send = append(send, b...)
	}
	return send, counts
}

// destination counts how many splitters v has passed, without
// assuming splitters is sorted: an idle peer contributes the
// INACTIVE placeholder as its splitter, which would otherwise break a
// strict ascending-order assumption. Counting rather than
// upper-bounding keeps the mapping from Pc to destination consistent
// across every peer regardless of that placeholder's position.
func destination(v tuple.Label, splitters []tuple.Label) int {
	d := 0
	for _, s := range splitters {
		if v >= s {
			d++
		}
	}
	return d
}

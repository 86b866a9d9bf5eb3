package partition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/partition"
	"github.com/ashwin1596/gclabel/internal/reducer"
	"github.com/ashwin1596/gclabel/internal/seeds"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// converge runs the full reduce -> partition -> extract pipeline
// across peers, one input slice per peer, and returns the set of Pc
// values the coordinator (rank 0) gathered.
func converge(t *testing.T, variant partition.Variant, inputs [][]tuple.T) map[uint64]bool {
	t.Helper()
	groups := collectives.NewLocalGroups(len(inputs))
	var root []tuple.T
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		reduced, err := reducer.Run(g, inputs[g.Rank()])
		if err != nil {
			return err
		}
		res, err := partition.Run(g, variant, reduced, nil)
		if err != nil {
			return err
		}
		final, err := seeds.Extract(g, res.Local, 0)
		if err != nil {
			return err
		}
		if g.Rank() == 0 {
			root = final
		}
		return nil
	})
	require.NoError(t, err)

	out := make(map[uint64]bool, len(root))
	for _, tup := range root {
		out[tup.Pc] = true
	}
	return out
}

func variants() []partition.Variant {
	return []partition.Variant{partition.Naive, partition.Prune, partition.PruneBalance}
}

func TestSingleEdge(t *testing.T) {
	for _, v := range variants() {
		got := converge(t, v, [][]tuple.T{
			{{Key: 10, Pn: 5, Pc: 5}, {Key: 10, Pn: 5, Pc: 3}},
		})
		assert.Equal(t, map[uint64]bool{3: true}, got, "variant %s", v)
	}
}

func TestChainOfThree(t *testing.T) {
	input := []tuple.T{
		{Key: 1, Pn: 1, Pc: 1},
		{Key: 1, Pn: 1, Pc: 2},
		{Key: 2, Pn: 2, Pc: 2},
		{Key: 2, Pn: 2, Pc: 3},
	}
	for _, v := range variants() {
		got := converge(t, v, [][]tuple.T{input})
		assert.Equal(t, map[uint64]bool{1: true}, got, "variant %s", v)
	}
}

func TestTwoDisjointComponents(t *testing.T) {
	input := []tuple.T{
		{Key: 1, Pn: 1, Pc: 1},
		{Key: 1, Pn: 1, Pc: 2},
		{Key: 2, Pn: 3, Pc: 3},
		{Key: 2, Pn: 3, Pc: 4},
	}
	for _, v := range variants() {
		got := converge(t, v, [][]tuple.T{input})
		assert.Equal(t, map[uint64]bool{1: true, 3: true}, got, "variant %s", v)
	}
}

func TestSingletonComponents(t *testing.T) {
	input := []tuple.T{
		{Key: 1, Pn: 100, Pc: 100},
		{Key: 2, Pn: 200, Pc: 200},
		{Key: 3, Pn: 300, Pc: 300},
	}
	for _, v := range variants() {
		got := converge(t, v, [][]tuple.T{input})
		assert.Equal(t, map[uint64]bool{100: true, 200: true, 300: true}, got, "variant %s", v)
	}
}

func TestVariantEquivalenceAcrossPeerCounts(t *testing.T) {
	// The chain-of-three input split across two peers must converge to
	// the same single seed as the single-peer case, for every variant.
	perPeer := [][]tuple.T{
		{{Key: 1, Pn: 1, Pc: 1}, {Key: 1, Pn: 1, Pc: 2}},
		{{Key: 2, Pn: 2, Pc: 2}, {Key: 2, Pn: 2, Pc: 3}},
	}
	for _, v := range variants() {
		got := converge(t, v, perPeer)
		assert.Equal(t, map[uint64]bool{1: true}, got, "variant %s", v)
	}
}

func TestPruneVariantHandlesEmptyActivePeer(t *testing.T) {
	// One peer starts with no work at all; the pruning subgroup
	// machinery must still let the rest of the group converge.
	perPeer := [][]tuple.T{
		{{Key: 1, Pn: 1, Pc: 1}, {Key: 1, Pn: 1, Pc: 2}},
		{},
		{{Key: 2, Pn: 2, Pc: 2}, {Key: 2, Pn: 2, Pc: 3}},
	}
	got := converge(t, partition.Prune, perPeer)
	assert.Equal(t, map[uint64]bool{1: true}, got)
}

func TestVariantString(t *testing.T) {
	assert.Equal(t, "naive", partition.Naive.String())
	assert.Equal(t, "prune", partition.Prune.String())
	assert.Equal(t, "prune+balance", partition.PruneBalance.String())
}

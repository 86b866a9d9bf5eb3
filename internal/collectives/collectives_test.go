package collectives_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

func TestSortRedistributesGlobally(t *testing.T) {
	groups := collectives.NewLocalGroups(3)
	locals := [][]tuple.T{
		{{Key: 5}, {Key: 1}},
		{{Key: 9}},
		{{Key: 3}, {Key: 7}, {Key: 0}},
	}

	var results [3][]tuple.T
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		out, err := g.Sort(locals[g.Rank()], tuple.ByKey)
		if err != nil {
			return err
		}
		results[g.Rank()] = out
		return nil
	})
	require.NoError(t, err)

	var all []tuple.T
	for _, r := range results {
		all = append(all, r...)
	}
	require.Len(t, all, 6)
	assert.True(t, sort.SliceIsSorted(all, func(i, j int) bool { return all[i].Key < all[j].Key }))

	// block decomposition is floor/ceil rank-ordered
	assert.Len(t, results[0], 2)
	assert.Len(t, results[1], 2)
	assert.Len(t, results[2], 2)
}

func TestTestAllRequiresEveryPeer(t *testing.T) {
	groups := collectives.NewLocalGroups(4)
	var out [4]bool
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		flag := g.Rank() != 2
		res, err := g.TestAll(flag)
		out[g.Rank()] = res
		return err
	})
	require.NoError(t, err)
	for _, v := range out {
		assert.False(t, v)
	}
}

func TestTestAllUnanimous(t *testing.T) {
	groups := collectives.NewLocalGroups(3)
	var out [3]bool
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		res, err := g.TestAll(true)
		out[g.Rank()] = res
		return err
	})
	require.NoError(t, err)
	for _, v := range out {
		assert.True(t, v)
	}
}

func TestSubgroupExcludesNonMembers(t *testing.T) {
	groups := collectives.NewLocalGroups(4)
	var sizes [4]int
	var member [4]bool
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		active := g.Rank()%2 == 0
		sg, ok, err := g.Subgroup(active)
		if err != nil {
			return err
		}
		member[g.Rank()] = ok
		if ok {
			sizes[g.Rank()] = sg.Size()
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, member[0])
	assert.False(t, member[1])
	assert.True(t, member[2])
	assert.False(t, member[3])
	assert.Equal(t, 2, sizes[0])
	assert.Equal(t, 2, sizes[2])
}

func TestAllToAllRedistributesByDestination(t *testing.T) {
	groups := collectives.NewLocalGroups(2)
	send := [][]tuple.T{
		{{Key: 1}, {Key: 2}}, // rank0 sends 1 tuple to rank0, 1 to rank1
		{{Key: 3}, {Key: 4}}, // rank1 sends 1 tuple to rank0, 1 to rank1
	}
	counts := [][]int{{1, 1}, {1, 1}}

	var recv [2][]tuple.T
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		out, err := g.AllToAll(send[g.Rank()], counts[g.Rank()])
		recv[g.Rank()] = out
		return err
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint64{1, 3}, keysOf(recv[0]))
	assert.ElementsMatch(t, []uint64{2, 4}, keysOf(recv[1]))
}

func keysOf(ts []tuple.T) []uint64 {
	out := make([]uint64, len(ts))
	for i, t := range ts {
		out[i] = t.Key
	}
	return out
}

func TestTupleExscanAndRightShift(t *testing.T) {
	groups := collectives.NewLocalGroups(3)
	vals := []tuple.T{{Pc: 1, Pn: 9}, {Pc: 4, Pn: 2}, {Pc: 4, Pn: 7}}

	var exscan [3]tuple.T
	var shifted [3]tuple.T
	var hasPrev [3]bool
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		e, err := g.TupleExscan(vals[g.Rank()], tuple.MaxPcMinPn)
		if err != nil {
			return err
		}
		exscan[g.Rank()] = e
		s, ok, err := g.TupleRightShift(vals[g.Rank()])
		if err != nil {
			return err
		}
		shifted[g.Rank()] = s
		hasPrev[g.Rank()] = ok
		return nil
	})
	require.NoError(t, err)

	assert.False(t, hasPrev[0])
	assert.True(t, hasPrev[1])
	assert.True(t, hasPrev[2])
	assert.Equal(t, vals[0], shifted[1])
	assert.Equal(t, vals[1], shifted[2])
	// rank2's exscan folds MaxPcMinPn over vals[0], vals[1]: larger Pc wins -> vals[1]
	assert.Equal(t, vals[1], exscan[2])
}

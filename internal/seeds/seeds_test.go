package seeds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/seeds"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

func TestExtractDedupsAcrossPeers(t *testing.T) {
	groups := collectives.NewLocalGroups(3)
	locals := [][]tuple.T{
		{{Pc: 1}, {Pc: 2}},
		{{Pc: 2}, {Pc: 3}},
		{{Pc: 1}, {Pc: 3}, {Pc: 4}},
	}

	var root []tuple.T
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		out, err := seeds.Extract(g, locals[g.Rank()], 0)
		if g.Rank() == 0 {
			root = out
		}
		return err
	})
	require.NoError(t, err)

	got := make(map[uint64]int)
	for _, t := range root {
		got[t.Pc]++
	}
	assert.Equal(t, map[uint64]int{1: 1, 2: 1, 3: 1, 4: 1}, got)
}

func TestExtractNonRootReturnsNil(t *testing.T) {
	groups := collectives.NewLocalGroups(2)
	locals := [][]tuple.T{{{Pc: 5}}, {{Pc: 6}}}

	var nonRoot []tuple.T
	nonRootSeen := false
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		out, err := seeds.Extract(g, locals[g.Rank()], 0)
		if g.Rank() == 1 {
			nonRoot = out
			nonRootSeen = true
		}
		return err
	})
	require.NoError(t, err)
	require.True(t, nonRootSeen)
	assert.Nil(t, nonRoot)
}

func TestExtractHandlesEmptyPeer(t *testing.T) {
	groups := collectives.NewLocalGroups(2)
	locals := [][]tuple.T{{}, {{Pc: 9}}}

	var root []tuple.T
	err := collectives.RunLocal(groups, func(g *collectives.Group) error {
		out, err := seeds.Extract(g, locals[g.Rank()], 0)
		if g.Rank() == 0 {
			root = out
		}
		return err
	})
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, tuple.Label(9), root[0].Pc)
}

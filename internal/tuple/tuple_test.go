package tuple_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashwin1596/gclabel/internal/tuple"
)

func TestByPcPnOrdering(t *testing.T) {
	a := tuple.T{Pc: 1, Pn: 5}
	b := tuple.T{Pc: 1, Pn: 3}
	c := tuple.T{Pc: 2, Pn: 0}

	assert.True(t, tuple.ByPcPn(b, a))
	assert.False(t, tuple.ByPcPn(a, b))
	assert.True(t, tuple.ByPcPn(a, c))
}

func TestMinPcMaxPn(t *testing.T) {
	x := tuple.T{Pc: 3, Pn: 1}
	y := tuple.T{Pc: 5, Pn: 9}
	assert.Equal(t, x, tuple.MinPcMaxPn(x, y))
	assert.Equal(t, x, tuple.MinPcMaxPn(y, x))

	// tie on Pc, keeps larger Pn
	tie1 := tuple.T{Pc: 4, Pn: 1}
	tie2 := tuple.T{Pc: 4, Pn: 9}
	assert.Equal(t, tie2, tuple.MinPcMaxPn(tie1, tie2))
}

func TestMaxPcMinPn(t *testing.T) {
	x := tuple.T{Pc: 3, Pn: 1}
	y := tuple.T{Pc: 5, Pn: 9}
	assert.Equal(t, y, tuple.MaxPcMinPn(x, y))
	assert.Equal(t, y, tuple.MaxPcMinPn(y, x))

	tie1 := tuple.T{Pc: 4, Pn: 1}
	tie2 := tuple.T{Pc: 4, Pn: 9}
	assert.Equal(t, tie1, tuple.MaxPcMinPn(tie1, tie2))
}

func TestSentinelsAreDistinctAndMaximal(t *testing.T) {
	assert.NotEqual(t, tuple.Inactive, tuple.InactiveSoon)
	assert.Equal(t, tuple.Inactive, tuple.InactiveSoon+1)
	assert.Equal(t, tuple.Label(^uint64(0)), tuple.Inactive)
}

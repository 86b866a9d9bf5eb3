// Package collectives implements the bulk-synchronous primitives the
// partitioner is built on: global sort, all-to-all, all-gather,
// gather-v, block redistribution, exclusive/reverse-exclusive prefix
// scan, neighbour shifts, and a global AND. Every primitive is
// collective — every member of a Group must call it, in the same
// order, once per superstep.
//
// Both transports this package ships (an in-process one for tests and
// single-process runs, and a net/rpc one for a real multi-process
// deployment) reduce every primitive to one shared building block: an
// all-gather of a single tagged Payload. A member contributes its
// value and receives every member's contribution back in rank order;
// every other collective is then a pure local computation over that
// gathered picture, so Sort, AllToAll, and friends behave identically
// regardless of which transport is underneath.
package collectives

import (
	"sort"

	"github.com/ashwin1596/gclabel/internal/gcerr"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// Group is a handle to one peer's view of a fixed-size peer group. It is
// the collectives-layer handle referenced in the design notes: created
// once per process (or per in-process peer goroutine) before the driver
// runs, and closed once after.
type Group struct {
	t transport
}

// Rank returns this peer's position in the group, 0..Size()-1.
func (g *Group) Rank() int { return g.t.rank() }

// Size returns the number of peers in the group.
func (g *Group) Size() int { return g.t.size() }

// Close releases the transport's resources (connections, goroutines).
func (g *Group) Close() error { return g.t.close() }

func (g *Group) call(op string, p Payload) ([]Payload, error) {
	all, err := g.t.allgather(p)
	if err != nil {
		return nil, gcerr.NewCollectiveError(op, err)
	}
	return all, nil
}

// Sort globally sorts the concatenation of every peer's local tuples
// under less and redistributes the result so each peer ends with a
// contiguous, roughly equal, rank-ordered share. Stable order is not
// guaranteed.
func (g *Group) Sort(local []tuple.T, less func(a, b tuple.T) bool) ([]tuple.T, error) {
	all, err := g.call("sort", Payload{Kind: KindTuples, Tuples: local})
	if err != nil {
		return nil, err
	}
	global := concatTuples(all)
	sort.Slice(global, func(i, j int) bool { return less(global[i], global[j]) })
	return blockShare(global, g.t.rank(), g.t.size()), nil
}

// BlockDecompose redistributes local, preserving element order, so each
// peer holds floor(N/p) or ceil(N/p) elements in rank order.
func (g *Group) BlockDecompose(local []tuple.T) ([]tuple.T, error) {
	all, err := g.call("block_decompose", Payload{Kind: KindTuples, Tuples: local})
	if err != nil {
		return nil, err
	}
	global := concatTuples(all)
	return blockShare(global, g.t.rank(), g.t.size()), nil
}

// BlockDecomposePartitions block-decomposes only local[:pend], leaving
// local[pend:] (the inactive suffix) untouched and appended locally
// after the new active prefix. It returns the peer's new local segment
// and the new pend.
func (g *Group) BlockDecomposePartitions(local []tuple.T, pend int) ([]tuple.T, int, error) {
	suffix := append([]tuple.T(nil), local[pend:]...)
	newActive, err := g.BlockDecompose(local[:pend])
	if err != nil {
		return nil, 0, err
	}
	newLocal := make([]tuple.T, 0, len(newActive)+len(suffix))
	newLocal = append(newLocal, newActive...)
	newLocal = append(newLocal, suffix...)
	return newLocal, len(newActive), nil
}

// TupleExscan computes the exclusive prefix fold of x over op across
// ranks: rank r receives op(x_0, ..., x_{r-1}). Rank 0's result is the
// zero Tuple and must not be used by the caller.
func (g *Group) TupleExscan(x tuple.T, op func(a, b tuple.T) tuple.T) (tuple.T, error) {
	all, err := g.call("exscan", Payload{Kind: KindTuple, Tuple: x})
	if err != nil {
		return tuple.T{}, err
	}
	rank := g.t.rank()
	if rank == 0 {
		return tuple.T{}, nil
	}
	acc := all[0].Tuple
	for i := 1; i < rank; i++ {
		acc = op(acc, all[i].Tuple)
	}
	return acc, nil
}

// TupleReverseExscan is the mirror of TupleExscan: rank r receives
// op(x_{r+1}, ..., x_{p-1}). The last rank's result is the zero Tuple.
func (g *Group) TupleReverseExscan(x tuple.T, op func(a, b tuple.T) tuple.T) (tuple.T, error) {
	all, err := g.call("reverse_exscan", Payload{Kind: KindTuple, Tuple: x})
	if err != nil {
		return tuple.T{}, err
	}
	rank, size := g.t.rank(), g.t.size()
	if rank == size-1 {
		return tuple.T{}, nil
	}
	acc := all[rank+1].Tuple
	for i := rank + 2; i < size; i++ {
		acc = op(acc, all[i].Tuple)
	}
	return acc, nil
}

// TupleRightShift returns the x contributed by rank-1, or (zero, false)
// at rank 0.
func (g *Group) TupleRightShift(x tuple.T) (tuple.T, bool, error) {
	all, err := g.call("right_shift", Payload{Kind: KindTuple, Tuple: x})
	if err != nil {
		return tuple.T{}, false, err
	}
	rank := g.t.rank()
	if rank == 0 {
		return tuple.T{}, false, nil
	}
	return all[rank-1].Tuple, true, nil
}

// TupleLeftShift returns the x contributed by rank+1, or (zero, false)
// at the last rank.
func (g *Group) TupleLeftShift(x tuple.T) (tuple.T, bool, error) {
	all, err := g.call("left_shift", Payload{Kind: KindTuple, Tuple: x})
	if err != nil {
		return tuple.T{}, false, err
	}
	rank, size := g.t.rank(), g.t.size()
	if rank == size-1 {
		return tuple.T{}, false, nil
	}
	return all[rank+1].Tuple, true, nil
}

// TupleAllGather returns every peer's x, indexed by rank.
func (g *Group) TupleAllGather(x tuple.T) ([]tuple.T, error) {
	all, err := g.call("allgather", Payload{Kind: KindTuple, Tuple: x})
	if err != nil {
		return nil, err
	}
	out := make([]tuple.T, len(all))
	for i, p := range all {
		out[i] = p.Tuple
	}
	return out, nil
}

// GatherV collects every peer's local tuples onto root, in rank order.
// Non-root callers receive nil.
func (g *Group) GatherV(local []tuple.T, root int) ([]tuple.T, error) {
	all, err := g.call("gatherv", Payload{Kind: KindTuples, Tuples: local})
	if err != nil {
		return nil, err
	}
	if g.t.rank() != root {
		return nil, nil
	}
	return concatTuples(all), nil
}

// AllToAll redistributes send, a locally contiguous sequence already
// partitioned into per-destination runs: sendCounts[d] tuples starting
// at the running offset go to peer d. It returns everything this peer
// received, concatenated in source-rank order.
func (g *Group) AllToAll(send []tuple.T, sendCounts []int) ([]tuple.T, error) {
	all, err := g.call("all2all", Payload{Kind: KindTuples, Tuples: send, Counts: sendCounts})
	if err != nil {
		return nil, err
	}
	me := g.t.rank()
	var recv []tuple.T
	for _, p := range all {
		if me >= len(p.Counts) {
			continue
		}
		offset := 0
		for d := 0; d < me; d++ {
			offset += p.Counts[d]
		}
		recv = append(recv, p.Tuples[offset:offset+p.Counts[me]]...)
	}
	return recv, nil
}

// TestAll returns the global AND of flag across every member of the
// group.
func (g *Group) TestAll(flag bool) (bool, error) {
	all, err := g.call("test_all", Payload{Kind: KindBool, Bool: flag})
	if err != nil {
		return false, err
	}
	for _, p := range all {
		if !p.Bool {
			return false, nil
		}
	}
	return true, nil
}

// Subgroup splits the group on the predicate active, exactly as every
// member of the parent must call it together (MPI_Comm_split-style):
// members for which active is true get a fresh Group renumbered
// 0..k-1 in ascending parent-rank order; the rest get (nil, false).
// Every peer, active or not, must call Subgroup once per superstep so
// the transport's internal call sequence stays in lockstep.
func (g *Group) Subgroup(active bool) (*Group, bool, error) {
	all, err := g.call("subgroup_split", Payload{Kind: KindBool, Bool: active})
	if err != nil {
		return nil, false, err
	}
	var members []int
	for r, p := range all {
		if p.Bool {
			members = append(members, r)
		}
	}
	childT, myRank := g.t.subset(members)
	if myRank < 0 {
		return nil, false, nil
	}
	return &Group{t: childT}, true, nil
}

func concatTuples(all []Payload) []tuple.T {
	var global []tuple.T
	for _, p := range all {
		global = append(global, p.Tuples...)
	}
	return global
}

// blockShare returns the slice of global belonging to rank under a
// floor(N/p)/ceil(N/p) block decomposition in rank order.
func blockShare(global []tuple.T, rank, size int) []tuple.T {
	n := len(global)
	base, rem := n/size, n%size
	start := rank*base + min(rank, rem)
	count := base
	if rank < rem {
		count++
	}
	end := start + count
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	share := make([]tuple.T, end-start)
	copy(share, global[start:end])
	return share
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

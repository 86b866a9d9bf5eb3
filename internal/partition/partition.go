// Package partition implements the iterative pointer-doubling label
// propagation loop that runs after the key-phase reducer has produced
// an initial Pn/Pc assignment. Every superstep sorts the active region
// by (Pc, Pn), scans each maximal same-Pc bucket, and either retires
// it, flattens it in place, or emits a bridge tuple that carries its
// minimum label one hop further outward. The loop runs until every
// peer reports no genuinely active bucket in the same superstep.
package partition

import (
	"go.uber.org/zap"

	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/logging"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// Variant selects how the loop treats tuples that have already
// converged to their final label.
type Variant int

const (
	// Naive never prunes: every tuple stays in the active region for
	// every remaining superstep, and an agreeing bucket just relabels
	// in place.
	Naive Variant = iota
	// Prune moves finalised tuples into an inactive suffix so later
	// supersteps sort and scan a shrinking active prefix. A peer with
	// no active tuples left skips the boundary exchange and bucket scan
	// but still joins the sort, the subgroup split and the vote.
	Prune
	// PruneBalance is Prune plus a block-decompose of the active
	// prefix at the end of every superstep, evening out the load skew
	// pruning alone tends to introduce.
	PruneBalance
)

// String renders the variant the way the driver's flag and log output
// expect.
func (v Variant) String() string {
	switch v {
	case Naive:
		return "naive"
	case Prune:
		return "prune"
	case PruneBalance:
		return "prune+balance"
	default:
		return "unknown"
	}
}

// Result is one peer's view of a completed run.
type Result struct {
	Local      []tuple.T
	Supersteps int
}

// Run drives the loop to convergence and returns this peer's final
// local segment (its surviving active tuples followed by anything
// pruned to the inactive suffix) plus the number of supersteps it
// took. Every peer in g must call Run with the same variant. log may
// be nil, in which case per-superstep logging is skipped.
func Run(g *collectives.Group, variant Variant, local []tuple.T, log *zap.SugaredLogger) (Result, error) {
	pruning := variant != Naive
	balancing := variant == PruneBalance
	pend := len(local)
	supersteps := 0

	for {
		supersteps++
		if log != nil {
			logging.WithSuperstep(log, supersteps).Debugw("superstep start", "active", pend, "total", len(local))
		}

		sorted, err := g.Sort(local[:pend], tuple.ByPcPn)
		if err != nil {
			return Result{}, err
		}
		local = concatSegments(sorted, local[pend:])
		pend = len(sorted)

		var sg *collectives.Group
		participate := pend > 0
		if pruning {
			var ok bool
			sg, ok, err = g.Subgroup(pend > 0)
			if err != nil {
				return Result{}, err
			}
			participate = ok
		} else {
			sg = g
		}

		done := true
		var newtuples []tuple.T

		if participate {
			active := local[:pend]
			sgRank, sgSize := sg.Rank(), sg.Size()

			prevMin, err := sg.TupleExscan(lastBucketMin(active), tuple.MaxPcMinPn)
			if err != nil {
				return Result{}, err
			}
			prevEl, hasPrev, err := sg.TupleRightShift(active[len(active)-1])
			if err != nil {
				return Result{}, err
			}
			nextMax, err := sg.TupleReverseExscan(firstBucketMax(active), tuple.MinPcMaxPn)
			if err != nil {
				return Result{}, err
			}
			// next_el mirrors prev_el for symmetry with the boundary
			// witnesses above; nothing below the loop reads its value,
			// only its collective call needs to happen in lockstep.
			if _, _, err = sg.TupleLeftShift(active[0]); err != nil {
				return Result{}, err
			}

			i := 0
			for i < len(active) {
				j := bucketEnd(active, i)
				f := active[i]

				minPn := f.Pn
				if sgRank > 0 && prevMin.Pc == f.Pc {
					minPn = prevMin.Pn
				}
				maxPn := active[j-1].Pn
				if sgRank < sgSize-1 && nextMax.Pc == f.Pc {
					maxPn = nextMax.Pn
				}
				straddlesLeft := sgRank > 0 && hasPrev && prevEl.Pc == f.Pc

				// Case 1: singleton bucket that doesn't continue from
				// the peer to the left. Terminal for this tuple.
				if j-i == 1 && !straddlesLeft {
					if pruning && f.Pn == tuple.InactiveSoon {
						active[i].Pn = tuple.Inactive
					} else {
						active[i].Pc = active[i].Pn
					}
					i = j
					continue
				}

				// Case 2: every tuple in the bucket already agrees.
				if minPn == maxPn {
					switch {
					case pruning && maxPn == tuple.InactiveSoon:
						for k := i; k < j; k++ {
							active[k].Pn = tuple.Inactive
						}
					case pruning && f.Pc == maxPn:
						// Already converged to its own label; stay
						// active one more superstep so neighbours see
						// a stable signal before this bucket retires.
						for k := i; k < j; k++ {
							active[k].Pn = tuple.InactiveSoon
						}
					default:
						for k := i; k < j; k++ {
							active[k].Pc = active[k].Pn
						}
					}
					i = j
					continue
				}

				// Case 3: genuinely active bucket.
				if pruning && minPn > f.Pc {
					minPn = f.Pc
				}
				done = false

				prevPn := tuple.Label(0)
				if hasPrev {
					prevPn = prevEl.Pn
				}
				k := i
				if !straddlesLeft {
					if pruning && active[i].Pn > minPn {
						active[i].Pn = minPn
					}
					prevPn = minPn
					k = i + 1
				}
				foundFlip := false
				for ; k < j; k++ {
					if pruning && active[k].Pn == tuple.InactiveSoon {
						active[k].Pn = active[k].Pc
					}
					nextPn := active[k].Pn
					if active[k].Pn == prevPn || active[k].Pn == active[k].Pc {
						if !foundFlip {
							foundFlip = true
							active[k].Pn = active[k].Pc
							active[k].Pc = minPn
						} else {
							active[k].Pn = minPn
							active[k].Pc = minPn
						}
					} else {
						active[k].Pn, active[k].Pc = active[k].Pc, active[k].Pn
						active[k].Pn = minPn
					}
					prevPn = nextPn
				}
				if !foundFlip {
					bridge := active[i]
					bridge.Pn, bridge.Pc = bridge.Pc, bridge.Pn
					newtuples = append(newtuples, bridge)
				}
				i = j
			}
		}

		local = insertNewtuples(local, pend, newtuples)
		pend += len(newtuples)

		if pruning {
			local, pend = partitionRetired(local, pend)
		}

		if balancing {
			local, pend, err = g.BlockDecomposePartitions(local, pend)
			if err != nil {
				return Result{}, err
			}
		}

		allDone, err := g.TestAll(done)
		if err != nil {
			return Result{}, err
		}
		if log != nil {
			logging.WithSuperstep(log, supersteps).Debugw("superstep done", "locally_done", done, "all_done", allDone, "bridge_tuples", len(newtuples))
		}
		if allDone {
			break
		}
	}

	return Result{Local: local, Supersteps: supersteps}, nil
}

func bucketEnd(s []tuple.T, i int) int {
	j := i + 1
	for j < len(s) && s[j].Pc == s[i].Pc {
		j++
	}
	return j
}

// lastBucketMin returns the first tuple of the bucket active ends
// with, i.e. the run of trailing tuples sharing active's last Pc.
func lastBucketMin(active []tuple.T) tuple.T {
	i := len(active) - 1
	for i > 0 && active[i-1].Pc == active[len(active)-1].Pc {
		i--
	}
	return active[i]
}

// firstBucketMax returns the last tuple of the bucket active begins
// with, i.e. the run of leading tuples sharing active's first Pc.
func firstBucketMax(active []tuple.T) tuple.T {
	j := 0
	for j+1 < len(active) && active[j+1].Pc == active[0].Pc {
		j++
	}
	return active[j]
}

func concatSegments(a, b []tuple.T) []tuple.T {
	out := make([]tuple.T, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func insertNewtuples(local []tuple.T, pend int, newtuples []tuple.T) []tuple.T {
	if len(newtuples) == 0 {
		return local
	}
	out := make([]tuple.T, 0, len(local)+len(newtuples))
	out = append(out, local[:pend]...)
	out = append(out, newtuples...)
	out = append(out, local[pend:]...)
	return out
}

// partitionRetired moves every tuple in local[:pend] marked Inactive
// past the active/inactive boundary, growing the inactive suffix and
// shrinking pend by however many tuples finalised this superstep.
func partitionRetired(local []tuple.T, pend int) ([]tuple.T, int) {
	live := make([]tuple.T, 0, pend)
	retired := make([]tuple.T, 0)
	for _, t := range local[:pend] {
		if t.Pn == tuple.Inactive {
			retired = append(retired, t)
		} else {
			live = append(live, t)
		}
	}
	out := make([]tuple.T, 0, len(local))
	out = append(out, live...)
	out = append(out, retired...)
	out = append(out, local[pend:]...)
	return out, len(live)
}

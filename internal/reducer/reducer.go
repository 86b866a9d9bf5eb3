// Package reducer implements the one-shot key-phase reduction that
// runs once before the main partitioner loop: it groups tuples sharing
// the same graph edge key and rewrites their Pn to the minimum Pc in
// that group, collapsing multi-edges into a shared initial label.
package reducer

import (
	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// Run sorts local by key, finds every maximal run of tuples sharing a
// key (a run may straddle any number of peers), and sets every member's
// Pn to the minimum Pc across the whole run. It never emits the
// "representative" sentinel spec.md's reference implementation uses
// internally — every tuple's Pn already lands in the label domain, so
// no normalisation pass is needed afterward (design note (iii)).
func Run(g *collectives.Group, local []tuple.T) ([]tuple.T, error) {
	sorted, err := g.Sort(local, tuple.ByKey)
	if err != nil {
		return nil, err
	}
	n := len(sorted)
	rank, size := g.Rank(), g.Size()

	var headKey, lastKey, headMin, tailMin tuple.Label
	var wholeSegmentOneKey bool
	if n > 0 {
		headKey, lastKey = sorted[0].Key, sorted[n-1].Key
		headMin = minPcInRun(sorted, 0, runEnd(sorted, 0))
		tailMin = minPcInRun(sorted, runStart(sorted, n-1), n)
		wholeSegmentOneKey = headKey == lastKey
	}

	headInfo, err := g.TupleAllGather(tuple.T{Key: headKey, Pn: headMin, Pc: tuple.Label(boolToInt(n > 0 && wholeSegmentOneKey))})
	if err != nil {
		return nil, err
	}
	tailInfo, err := g.TupleAllGather(tuple.T{Key: lastKey, Pn: tailMin, Pc: tuple.Label(n)})
	if err != nil {
		return nil, err
	}

	firstKeyOf := func(r int) tuple.Label { return headInfo[r].Key }
	headMinOf := func(r int) tuple.Label { return headInfo[r].Pn }
	wholeOf := func(r int) bool { return headInfo[r].Pc == 1 }
	lastKeyOf := func(r int) tuple.Label { return tailInfo[r].Key }
	tailMinOf := func(r int) tuple.Label { return tailInfo[r].Pn }
	segLenOf := func(r int) int { return int(tailInfo[r].Pc) }

	if n == 0 {
		return sorted, nil
	}

	out := make([]tuple.T, n)
	copy(out, sorted)

	i := 0
	for i < n {
		j := runEnd(out, i)
		m := minPcInRun(out, i, j)

		if i == 0 && rank > 0 {
			target := headKey
			p := rank - 1
			for p >= 0 {
				if segLenOf(p) == 0 {
					p--
					continue
				}
				if lastKeyOf(p) != target {
					break
				}
				if tailMinOf(p) < m {
					m = tailMinOf(p)
				}
				if !wholeOf(p) {
					break
				}
				p--
			}
		}
		if j == n && rank < size-1 {
			target := lastKey
			p := rank + 1
			for p < size {
				if segLenOf(p) == 0 {
					p++
					continue
				}
				if firstKeyOf(p) != target {
					break
				}
				if headMinOf(p) < m {
					m = headMinOf(p)
				}
				if !wholeOf(p) {
					break
				}
				p++
			}
		}

		for k := i; k < j; k++ {
			out[k].Pn = m
		}
		i = j
	}
	return out, nil
}

func runEnd(s []tuple.T, i int) int {
	j := i + 1
	for j < len(s) && s[j].Key == s[i].Key {
		j++
	}
	return j
}

func runStart(s []tuple.T, i int) int {
	j := i
	for j > 0 && s[j-1].Key == s[i].Key {
		j--
	}
	return j
}

func minPcInRun(s []tuple.T, f, l int) tuple.Label {
	m := s[f].Pc
	for k := f + 1; k < l; k++ {
		if s[k].Pc < m {
			m = s[k].Pc
		}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Classifies the difference between two mappings as a single notification.

package collection

import (
	"slices"

	"github.com/maruel/gel/internal/listmodel"
)

type deltaKind int

const (
	deltaNone deltaKind = iota
	deltaReset
	deltaInsert
	deltaRemove
	deltaChanged
)

type delta struct {
	kind deltaKind
	r    listmodel.Range
}

var resetDelta = delta{kind: deltaReset}

// insertDelta handles source rows inserted at r. Rows previously at or after
// r.Start moved up by r.Len(), so fresh minus the new rows, shifted back, must
// equal old, and the new rows must be adjacent in fresh.
func insertDelta(old, fresh []int, r listmodel.Range) delta {
	start, n := -1, 0
	rest := make([]int, 0, len(fresh))
	for p, src := range fresh {
		if !r.Contains(src) {
			if src >= r.End {
				src -= r.Len()
			}
			rest = append(rest, src)
			continue
		}
		if start < 0 {
			start = p
		}
		if p != start+n {
			return resetDelta
		}
		n++
	}
	if !slices.Equal(rest, old) {
		return resetDelta
	}
	if n == 0 {
		return delta{}
	}
	return delta{kind: deltaInsert, r: listmodel.Range{Start: start, End: start + n}}
}

// removeDelta handles the source rows previously at r being removed. Rows
// after r shift down by r.Len().
func removeDelta(old, fresh []int, r listmodel.Range) delta {
	start, n := -1, 0
	shifted := make([]int, 0, len(old))
	for p, src := range old {
		if r.Contains(src) {
			if start < 0 {
				start = p
			}
			if p != start+n {
				return resetDelta
			}
			n++
			continue
		}
		if src >= r.End {
			src -= r.Len()
		}
		shifted = append(shifted, src)
	}
	if !slices.Equal(shifted, fresh) {
		return resetDelta
	}
	if n == 0 {
		return delta{}
	}
	return delta{kind: deltaRemove, r: listmodel.Range{Start: start, End: start + n}}
}

// changedDelta handles the source rows at r replaced in place. It only
// reports a data change when neither visibility nor order moved.
func changedDelta(old, fresh []int, r listmodel.Range) delta {
	if !slices.Equal(old, fresh) {
		return resetDelta
	}
	first, last := -1, -1
	for p, src := range fresh {
		if r.Contains(src) {
			if first < 0 {
				first = p
			}
			last = p
		}
	}
	if first < 0 {
		return delta{}
	}
	return delta{kind: deltaChanged, r: listmodel.Range{Start: first, End: last + 1}}
}

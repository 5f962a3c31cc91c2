package tasklist

import "math"

// Box is the vertical extent of a rendered row.
type Box struct {
	Top    int
	Height int
}

func (b Box) mid() float64 {
	return float64(b.Top) + float64(b.Height)/2
}

// InsertionPoint returns the index of the row the dragged row should be
// inserted before: the closest row whose midpoint lies below y. It returns
// len(boxes) when the pointer is below every midpoint. boxes must exclude the
// row being dragged.
func InsertionPoint(boxes []Box, y int) int {
	best := len(boxes)
	closest := math.Inf(-1)
	for i, b := range boxes {
		offset := float64(y) - b.mid()
		if offset < 0 && offset > closest {
			closest = offset
			best = i
		}
	}
	return best
}

// DropOrder returns ids with dragged moved before the row at index before,
// where before indexes ids with dragged removed.
func DropOrder(ids []int64, dragged int64, before int) []int64 {
	rest := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != dragged {
			rest = append(rest, id)
		}
	}
	before = max(0, min(before, len(rest)))
	out := make([]int64, 0, len(rest)+1)
	out = append(out, rest[:before]...)
	out = append(out, dragged)
	out = append(out, rest[before:]...)
	return out
}

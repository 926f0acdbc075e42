package position

import "math"

// Interval is one estimation window [Start, End).
type Interval struct {
	Index      int
	Start, End float64
}

// Windows returns the windows [k*step, k*step+length) that overlap
// [tStart, tEnd], in time order.
func Windows(tStart, tEnd, step, length float64) []Interval {
	if step <= 0 || length <= 0 || tEnd < tStart {
		return nil
	}
	first := math.Floor((tStart-length)/step) + 1
	last := math.Floor(tEnd / step)
	var out []Interval
	for k := first; k <= last; k++ {
		start := k * step
		out = append(out, Interval{Index: len(out), Start: start, End: start + length})
	}
	return out
}

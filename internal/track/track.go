package track

import (
	"fmt"
	"sort"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/monitoring"
)

var log = monitoring.Component("track")

// Reconstructor extracts tracks for one target.
type Reconstructor struct {
	MaxSpeed MaxSpeed
	HopCost  float64

	// WindowLength and OverlapLength count positions, not seconds.
	WindowLength  int
	OverlapLength int
}

// NewReconstructor returns a reconstructor using the windowing and hop
// cost of params.
func NewReconstructor(maxSpeed MaxSpeed, params config.TrackParams) *Reconstructor {
	return &Reconstructor{
		MaxSpeed:      maxSpeed,
		HopCost:       params.HopCost,
		WindowLength:  params.WindowLength,
		OverlapLength: params.OverlapLength,
	}
}

func sortPoints(points []Point) []Point {
	out := append([]Point(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Optimal computes the critical path over all points at once. The cost is
// quadratic in len(points).
func (r *Reconstructor) Optimal(points []Point) ([]Point, error) {
	return r.path(sortPoints(points))
}

func (r *Reconstructor) path(points []Point) ([]Point, error) {
	g := Build(points, r.MaxSpeed)
	order, err := g.Sort()
	if err != nil {
		return nil, err
	}
	idx := g.CriticalPath(order, r.HopCost)
	if monitoring.Verbose() {
		comps := g.Components()
		largest := 0
		if len(comps) > 0 {
			largest = len(comps[0])
		}
		log.Debugf("%d nodes, %d edges, %d components (largest %d), path %d",
			g.Len(), g.Edges(), len(comps), largest, len(idx))
	}
	out := make([]Point, len(idx))
	for i, v := range idx {
		out[i] = points[v]
	}
	return out, nil
}

// Span is an inclusive index range [Lo, Hi] of a sorted point slice.
type Span struct{ Lo, Hi int }

// Spans splits n points into overlapping windows of about length points.
// The overlap is stretched so the windows cover n evenly, and the last
// window always ends at n-1.
func Spans(n, length, overlap int) []Span {
	if n == 0 {
		return nil
	}
	if n <= length || length <= overlap {
		return []Span{{0, n - 1}}
	}
	count := (n + length - overlap - 1) / (length - overlap)
	stride := n / count
	overlap = length - stride
	var out []Span
	for i := 0; i < n-overlap; i += stride {
		out = append(out, Span{i, min(i+length, n-1)})
	}
	out[len(out)-1].Hi = n - 1
	return out
}

// widen grows s so it never splits a group of points sharing a timestamp.
func widen(points []Point, s Span) Span {
	for s.Lo > 0 && points[s.Lo-1].Timestamp == points[s.Lo].Timestamp {
		s.Lo--
	}
	for s.Hi < len(points)-1 && points[s.Hi+1].Timestamp == points[s.Hi].Timestamp {
		s.Hi++
	}
	return s
}

// Windowed computes a critical path in each overlapping window and keeps,
// for every timestamp on any window's path, the point with the highest
// likelihood.
func (r *Reconstructor) Windowed(points []Point) ([]Point, error) {
	sorted := sortPoints(points)
	best := make(map[float64]Point)
	for _, s := range Spans(len(sorted), r.WindowLength, r.OverlapLength) {
		s = widen(sorted, s)
		path, err := r.path(sorted[s.Lo : s.Hi+1])
		if err != nil {
			return nil, fmt.Errorf("window [%d, %d]: %w", s.Lo, s.Hi, err)
		}
		for _, p := range path {
			if cur, ok := best[p.Timestamp]; !ok || p.Likelihood > cur.Likelihood {
				best[p.Timestamp] = p
			}
		}
	}
	out := make([]Point, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Reconstruct runs Windowed, or Optimal when optimal is set.
func (r *Reconstructor) Reconstruct(points []Point, optimal bool) ([]Point, error) {
	if optimal {
		return r.Optimal(points)
	}
	out, err := r.Windowed(points)
	if err == nil {
		log.Printf("track of %d points from %d positions", len(out), len(points))
	}
	return out, err
}

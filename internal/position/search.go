package position

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/qraat/qraat/internal/bearing"
	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/spectrum"
)

// Splines maps a site ID to its bearing likelihood spline.
type Splines map[int]*spectrum.PeriodicSpline

// IDs returns the site IDs in ascending order.
func (s Splines) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// BearingTo returns the bearing in degrees from site to p, as atan2 of the
// easting and northing differences.
func BearingTo(site, p complex128) float64 {
	return cmplx.Phase(p-site) * 180 / math.Pi
}

// Likelihood sums every site's spline at the bearing from that site to p.
// Sites are visited in ID order so the sum is reproducible.
func Likelihood(sites map[int]complex128, splines Splines, p complex128) float64 {
	var ll float64
	for _, id := range splines.IDs() {
		ll += splines[id].At(BearingTo(sites[id], p))
	}
	return ll
}

// Grid is a square likelihood surface. Point (e, n) for e, n in
// [-HalfSpan, HalfSpan] is Center + complex(n*Scale, e*Scale) and is
// stored at flat index (e+HalfSpan)*Span() + (n+HalfSpan).
type Grid struct {
	Center      complex128
	Scale       float64
	HalfSpan    int
	Positions   []complex128
	Likelihoods []float64
}

// Span returns the number of points along one side.
func (g *Grid) Span() int { return 2*g.HalfSpan + 1 }

// OnEdge reports whether flat index i lies on the grid boundary.
func (g *Grid) OnEdge(i int) bool {
	span := g.Span()
	a, b := i/span, i%span
	return a == 0 || a == span-1 || b == 0 || b == span-1
}

// LikelihoodGrid evaluates the joint likelihood on a grid around center.
func LikelihoodGrid(sites map[int]complex128, splines Splines, center complex128, scale float64, halfSpan int) *Grid {
	g := &Grid{Center: center, Scale: scale, HalfSpan: halfSpan}
	span := g.Span()
	g.Positions = make([]complex128, span*span)
	g.Likelihoods = make([]float64, span*span)
	for e := -halfSpan; e <= halfSpan; e++ {
		for n := -halfSpan; n <= halfSpan; n++ {
			i := (e+halfSpan)*span + (n + halfSpan)
			g.Positions[i] = center + complex(float64(n)*scale, float64(e)*scale)
		}
	}
	for _, id := range splines.IDs() {
		site, s := sites[id], splines[id]
		for i, p := range g.Positions {
			g.Likelihoods[i] += s.At(BearingTo(site, p))
		}
	}
	return g
}

// Search maximises (or minimises, per obj) the joint likelihood. Each
// level from ScaleBase^Coarse down to ScaleBase^Fine is searched on a grid
// centred on the current best point; when the optimum lands on the grid
// edge the level is repeated around it, at most EdgeRetries more times.
func Search(sites map[int]complex128, splines Splines, center complex128, obj bearing.Objective, params config.SearchParams) (complex128, float64) {
	best, ll := center, obj.Worst()
	for _, scale := range params.Scales() {
		for try := 0; try <= params.EdgeRetries; try++ {
			g := LikelihoodGrid(sites, splines, best, scale, params.HalfSpan)
			i := obj.Best(g.Likelihoods)
			best, ll = g.Positions[i], g.Likelihoods[i]
			if !g.OnEdge(i) {
				break
			}
		}
	}
	return best, ll
}

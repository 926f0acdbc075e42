package spectrum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/qraat/qraat/internal/signal"
)

// knotOffset is the first knot of the fitted domain. Knots run from -180
// to 539 so the folded query range [0, 360) sits half a period away from
// both natural-spline boundaries.
const knotOffset = -signal.NumBearings / 2

// PeriodicSpline interpolates a 360-valued bearing likelihood vector as a
// cubic spline with period 360 degrees. At accepts any real bearing, in
// particular the [-180, 180] output of atan2, so callers never reduce
// bearings themselves.
type PeriodicSpline struct {
	values []float64
	fit    interp.NaturalCubic
}

// NewPeriodicSpline fits a spline through l[b] at every whole degree b.
func NewPeriodicSpline(l []float64) (*PeriodicSpline, error) {
	if len(l) != signal.NumBearings {
		return nil, fmt.Errorf("bearing spectrum has %d values, want %d", len(l), signal.NumBearings)
	}
	n := 2 * signal.NumBearings
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		x := knotOffset + i
		xs[i] = float64(x)
		ys[i] = l[mod360(x)]
	}
	s := &PeriodicSpline{values: append([]float64(nil), l...)}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit bearing spline: %w", err)
	}
	return s, nil
}

// mustSpline is NewPeriodicSpline for vectors whose length is already known
// to be right.
func mustSpline(l []float64) *PeriodicSpline {
	s, err := NewPeriodicSpline(l)
	if err != nil {
		panic(err)
	}
	return s
}

// At evaluates the spline at bearing theta degrees.
func (s *PeriodicSpline) At(theta float64) float64 {
	theta = math.Mod(theta, signal.NumBearings)
	if theta < 0 {
		theta += signal.NumBearings
	}
	return s.fit.Predict(theta)
}

// Values returns the whole-degree vector the spline was fitted on.
func (s *PeriodicSpline) Values() []float64 { return s.values }

func mod360(x int) int {
	x %= signal.NumBearings
	if x < 0 {
		x += signal.NumBearings
	}
	return x
}

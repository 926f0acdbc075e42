package covariance

import "math"

// Ellipse is a confidence region around Center. Axes holds the semi-major
// and semi-minor lengths in metres and Angle the rotation of the major
// axis from the easting axis in radians.
type Ellipse struct {
	Center complex128
	Level  float64
	Angle  float64
	Axes   [2]float64
}

// Area returns pi*a*b.
func (e *Ellipse) Area() float64 { return math.Pi * e.Axes[0] * e.Axes[1] }

// Eccentricity returns sqrt(1 - b^2/a^2).
func (e *Ellipse) Eccentricity() float64 {
	a, b := e.Axes[0]/2, e.Axes[1]/2
	return math.Sqrt(1 - (b*b)/(a*a))
}

// Contains reports whether p lies inside or on the ellipse.
func (e *Ellipse) Contains(p complex128) bool {
	x := imag(p) - imag(e.Center)
	y := real(p) - real(e.Center)
	sin, cos := math.Sincos(e.Angle)
	u := cos*x + sin*y
	v := -sin*x + cos*y
	return (u/e.Axes[0])*(u/e.Axes[0])+(v/e.Axes[1])*(v/e.Axes[1]) <= 1
}

// Boundary returns n points evenly spaced in parameter around the ellipse.
func (e *Ellipse) Boundary(n int) []complex128 {
	out := make([]complex128, n)
	sinA, cosA := math.Sincos(e.Angle)
	for i := range out {
		t := 2 * math.Pi * float64(i) / float64(n)
		sinT, cosT := math.Sincos(t)
		x := e.Axes[0]*cosT*cosA - e.Axes[1]*sinT*sinA
		y := e.Axes[0]*cosT*sinA + e.Axes[1]*sinT*cosA
		out[i] = e.Center + complex(y, x)
	}
	return out
}

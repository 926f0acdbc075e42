package geo

import (
	"math"
	"math/cmplx"
)

// Point packs a UTM coordinate: real part northing, imaginary part easting.
func Point(easting, northing float64) complex128 {
	return complex(northing, easting)
}

// Easting of p.
func Easting(p complex128) float64 { return imag(p) }

// Northing of p.
func Northing(p complex128) float64 { return real(p) }

// Bearing returns the angle in degrees, in (-180, 180], from site to p,
// measured clockwise from north.
func Bearing(site, p complex128) float64 {
	return cmplx.Phase(p-site) * 180 / math.Pi
}

// Distance between two points in metres.
func Distance(a, b complex128) float64 {
	return cmplx.Abs(b - a)
}

// Centroid returns the mean of pts, or 0 when pts is empty.
func Centroid(pts []complex128) complex128 {
	if len(pts) == 0 {
		return 0
	}
	var sum complex128
	for _, p := range pts {
		sum += p
	}
	return sum / complex(float64(len(pts)), 0)
}

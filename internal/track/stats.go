package track

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"
)

// Leg is the motion between consecutive track points.
type Leg struct {
	Timestamp float64 // midpoint of the leg
	Velocity  complex128
	Speed     float64
}

// Legs returns the velocity of every leg of a time-ordered track.
func Legs(track []Point) []Leg {
	if len(track) < 2 {
		return nil
	}
	out := make([]Leg, 0, len(track)-1)
	for i := 0; i+1 < len(track); i++ {
		a, b := track[i], track[i+1]
		v := (b.P - a.P) / complex(b.Timestamp-a.Timestamp, 0)
		out = append(out, Leg{
			Timestamp: (a.Timestamp + b.Timestamp) / 2,
			Velocity:  v,
			Speed:     cmplx.Abs(v),
		})
	}
	return out
}

// Accelerations returns the magnitude of the change in velocity between
// consecutive legs, divided by the time between leg midpoints.
func Accelerations(track []Point) []float64 {
	legs := Legs(track)
	if len(legs) < 2 {
		return nil
	}
	out := make([]float64, len(legs)-1)
	for i := range out {
		dt := legs[i+1].Timestamp - legs[i].Timestamp
		out[i] = cmplx.Abs(legs[i+1].Velocity-legs[i].Velocity) / dt
	}
	return out
}

// SpeedStats returns the mean and standard deviation of leg speeds, both
// NaN for tracks shorter than two points.
func SpeedStats(track []Point) (mean, std float64) {
	legs := Legs(track)
	if len(legs) == 0 {
		return math.NaN(), math.NaN()
	}
	speeds := make([]float64, len(legs))
	for i, l := range legs {
		speeds[i] = l.Speed
	}
	if len(speeds) == 1 {
		return speeds[0], 0
	}
	return stat.MeanStdDev(speeds, nil)
}

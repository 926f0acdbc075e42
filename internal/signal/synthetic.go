package signal

import (
	"math"
	"math/cmplx"
)

// CircularArrayRows models the calibration of a four-element uniform
// circular array: channel k responds to bearing b with
// exp(i*kappa*cos(b - 90k)). Every vector has the same norm, so Bartlet's
// estimator peaks exactly at the true bearing. Used to build synthetic
// deployments.
func CircularArrayRows(kappa float64) []SteeringRow {
	rows := make([]SteeringRow, NumBearings)
	for b := 0; b < NumBearings; b++ {
		var v Vector
		theta := float64(b) * math.Pi / 180
		for k := 0; k < NumChannels; k++ {
			phi := float64(k) * 2 * math.Pi / NumChannels
			v[k] = cmplx.Exp(complex(0, kappa*math.Cos(theta-phi)))
		}
		rows[b] = SteeringRow{ID: int64(b + 1), Bearing: float64(b), Vector: v}
	}
	return rows
}

// CircularArrayTable builds a table giving every site in siteIDs the same
// circular array calibration.
func CircularArrayTable(calID int, kappa float64, siteIDs ...int) *SteeringTable {
	t := NewSteeringTable(calID)
	rows := CircularArrayRows(kappa)
	for _, id := range siteIDs {
		// rows are well formed by construction
		_ = t.AddSite(id, rows)
	}
	return t
}

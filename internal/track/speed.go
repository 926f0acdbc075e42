package track

import (
	"fmt"
	"math"

	"github.com/qraat/qraat/internal/config"
)

// MaxSpeed returns the fastest feasible average speed in m/s of a target
// over an interval of dt seconds.
type MaxSpeed func(dt float64) float64

// Max-speed families accepted for a target.
const (
	FamilyConst  = "const"
	FamilyLinear = "linear"
	FamilyExp    = "exp"
)

// ConstSpeed is a fixed maximum speed.
func ConstSpeed(m float64) MaxSpeed {
	return func(float64) float64 { return m }
}

// LinearSpeed interpolates linearly from burst speed y1 at t1 to sustained
// speed y2 at t2, never dropping below limit.
func LinearSpeed(t1, y1, t2, y2, limit float64) MaxSpeed {
	slope := (y2 - y1) / (t2 - t1)
	return func(t float64) float64 {
		return math.Max(limit, (t-t1)*slope+y1)
	}
}

// ExpSpeed decays exponentially from y1 at t1 through y2 at t2 towards the
// asymptote limit: B*exp(r*t) + limit.
func ExpSpeed(t1, y1, t2, y2, limit float64) MaxSpeed {
	r := math.Log((y2-limit)/(y1-limit)) / (t1 - t2)
	b := math.Exp(r*t2) * (y2 - limit)
	r = -r
	return func(t float64) float64 {
		return b*math.Exp(r*t) + limit
	}
}

// NewMaxSpeed builds the max-speed function of a target. Burst and
// sustained speeds apply at the burst and sustained intervals of params.
func NewMaxSpeed(family string, burst, sustained, limit float64, params config.TrackParams) (MaxSpeed, error) {
	t1, t2 := params.BurstInterval, params.SustainedInterval
	switch family {
	case FamilyConst:
		return ConstSpeed(limit), nil
	case FamilyLinear:
		if t1 == t2 {
			return nil, fmt.Errorf("linear max speed needs distinct burst and sustained intervals")
		}
		return LinearSpeed(t1, burst, t2, sustained, limit), nil
	case FamilyExp:
		if burst <= limit || sustained <= limit {
			return nil, fmt.Errorf("exp max speed needs burst (%v) and sustained (%v) above limit %v", burst, sustained, limit)
		}
		return ExpSpeed(t1, burst, t2, sustained, limit), nil
	}
	return nil, fmt.Errorf("unknown max speed family %q", family)
}

package covariance

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/position"
)

// Estimator computes the covariance of a position. Numerical failures are
// reported through Result.Status; the error is reserved for inputs the
// estimator cannot accept at all.
type Estimator interface {
	Name() string
	Estimate(pos *position.Position, sites map[int]complex128) (*Result, error)
}

// New returns the estimator selected by params.Method, or nil for "none".
func New(params config.CovarianceParams, search config.SearchParams) (Estimator, error) {
	b := resampler{search: search.Coarser(), maxResamples: params.MaxResamples, levels: params.Levels, seed: params.Seed}
	switch params.Method {
	case config.CovarianceNone:
		return nil, nil
	case config.CovarianceAsymptotic:
		return &Asymptotic{Levels: params.Levels}, nil
	case config.CovarianceBoot:
		return &Bootstrap{b}, nil
	case config.CovarianceBoot2:
		return &PairBootstrap{b}, nil
	case config.CovarianceBoot3:
		return &CaseResample{b}, nil
	}
	return nil, fmt.Errorf("unknown covariance method %q", params.Method)
}

// resampler carries what the bootstrap estimators share.
type resampler struct {
	search       config.SearchParams
	maxResamples int
	levels       []float64
	seed         uint64
}

// rand returns a generator keyed on the position's timestamp, so results
// do not depend on the order windows are processed in.
func (b *resampler) rand(pos *position.Position) *rand.Rand {
	return rand.New(rand.NewPCG(b.seed, math.Float64bits(pos.Timestamp)))
}

// splinesFor restricts the window's splines to sites with a known
// position.
func splinesFor(pos *position.Position, sites map[int]complex128) position.Splines {
	out := make(position.Splines)
	for id, s := range pos.Window.Splines {
		if _, ok := sites[id]; ok {
			out[id] = s
		}
	}
	return out
}

// subPerSite returns the average number of sub-splines over the sites of
// the window.
func subPerSite(pos *position.Position) float64 {
	if pos.NumSites == 0 {
		return 0
	}
	n := 0
	for _, sub := range pos.Window.Sub {
		n += len(sub)
	}
	return float64(n) / float64(pos.NumSites)
}

package config

import "math"

// SearchParams controls the multi-resolution grid search. The search visits
// scales ScaleBase^Coarse down to ScaleBase^Fine on a (2*HalfSpan+1)^2 grid.
type SearchParams struct {
	HalfSpan    int
	Coarse      int
	Fine        int
	ScaleBase   float64
	EdgeRetries int
}

// Scales returns the grid spacing for each refinement level, coarsest first.
func (s SearchParams) Scales() []float64 {
	if s.Coarse < s.Fine {
		return nil
	}
	out := make([]float64, 0, s.Coarse-s.Fine+1)
	for i := s.Coarse; i >= s.Fine; i-- {
		out = append(out, math.Pow(s.ScaleBase, float64(i)))
	}
	return out
}

// Coarser returns a copy whose coarse exponent is reduced by one. The
// bootstrap estimators start from the point estimate, so they skip the
// widest level.
func (s SearchParams) Coarser() SearchParams {
	out := s
	if out.Coarse > out.Fine {
		out.Coarse--
	}
	return out
}

// CovarianceParams selects and bounds the confidence-region estimator.
type CovarianceParams struct {
	Method       string
	MaxResamples int
	Levels       []float64
	Seed         uint64
}

// TrackParams bounds track reconstruction.
type TrackParams struct {
	WindowLength      int
	OverlapLength     int
	HopCost           float64
	BurstInterval     float64
	SustainedInterval float64
}

// Params is the resolved, immutable configuration threaded through the
// bearing, spectrum, position and covariance stages of a run.
type Params struct {
	BearingMethod  string
	Normalize      bool
	ScoreThreshold *float64

	Search SearchParams

	WindowStep   float64
	WindowLength float64

	Covariance CovarianceParams
	Track      TrackParams

	Workers    int
	QueueDepth int
}

// Params resolves the tuning file into a Params value.
func (c *TuningConfig) Params() Params {
	var threshold *float64
	if c.ScoreThreshold != nil {
		v := *c.ScoreThreshold
		threshold = &v
	}
	return Params{
		BearingMethod:  c.GetBearingMethod(),
		Normalize:      c.GetNormalizeSpectrum(),
		ScoreThreshold: threshold,
		Search: SearchParams{
			HalfSpan:    c.GetHalfSpan(),
			Coarse:      c.GetCoarseExponent(),
			Fine:        c.GetFineExponent(),
			ScaleBase:   c.GetScaleBase(),
			EdgeRetries: c.GetEdgeRetries(),
		},
		WindowStep:   c.GetWindowStepSeconds(),
		WindowLength: c.GetWindowLengthSeconds(),
		Covariance: CovarianceParams{
			Method:       c.GetCovarianceMethod(),
			MaxResamples: c.GetBootMaxResamples(),
			Levels:       c.GetConfLevels(),
			Seed:         c.GetSeed(),
		},
		Track: TrackParams{
			WindowLength:      c.GetTrackWindowLength(),
			OverlapLength:     c.GetTrackOverlapLength(),
			HopCost:           c.GetTrackHopCost(),
			BurstInterval:     c.GetBurstIntervalSeconds(),
			SustainedInterval: c.GetSustainedIntervalSeconds(),
		},
		Workers:    c.GetWorkers(),
		QueueDepth: c.GetQueueDepth(),
	}
}

// DefaultParams returns the built-in defaults without reading any file.
func DefaultParams() Params {
	return EmptyTuningConfig().Params()
}

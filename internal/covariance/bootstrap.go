package covariance

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/position"
)

// Bootstrap recomputes the position from one randomly chosen leave-one-out
// sub-spline per site. Distances are scaled by the average number of
// sub-splines per site and the level radii doubled.
type Bootstrap struct{ resampler }

func (*Bootstrap) Name() string { return config.CovarianceBoot }

// Estimate implements Estimator.
func (b *Bootstrap) Estimate(pos *position.Position, sites map[int]complex128) (*Result, error) {
	if !pos.HasFix() {
		return newResult(b.Name(), 0), nil
	}
	r := newResult(b.Name(), *pos.Fix)
	splines := splinesFor(pos, sites)
	rng := b.rand(pos)
	samples := b.resampleSites(pos, sites, b.maxResamples, splines.IDs(), rng)
	r.Samples = len(samples)
	if len(samples) < minSamples {
		return r, nil
	}
	r.M = subPerSite(pos)
	half := len(samples) / 2
	fromSamples(r, samples[half:], samples[:half], r.M, 2, b.levels)
	return r, nil
}

// PairBootstrap recomputes the position from sub-splines of every pair of
// sites, spreading the resample budget over the pairs.
type PairBootstrap struct{ resampler }

func (*PairBootstrap) Name() string { return config.CovarianceBoot2 }

// Estimate implements Estimator.
func (b *PairBootstrap) Estimate(pos *position.Position, sites map[int]complex128) (*Result, error) {
	if !pos.HasFix() {
		return newResult(b.Name(), 0), nil
	}
	r := newResult(b.Name(), *pos.Fix)
	ids := splinesFor(pos, sites).IDs()
	if len(ids) < 2 {
		return r, nil
	}
	pairs := combin.Combinations(len(ids), 2)
	perPair := b.maxResamples / len(pairs)
	if perPair < 1 {
		perPair = 1
	}

	rng := b.rand(pos)
	var samples []complex128
	for _, pair := range pairs {
		samples = append(samples, b.resampleSites(pos, sites, perPair, []int{ids[pair[0]], ids[pair[1]]}, rng)...)
	}
	rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })

	r.Samples = len(samples)
	r.M = subPerSite(pos)
	if len(samples) < minSamples {
		return r, nil
	}
	half := len(samples) / 2
	fromSamples(r, samples[half:], samples[:half], 1, 1, b.levels)
	return r, nil
}

// resampleSites draws n positions, each searched from the fix using one
// random sub-spline per site in ids. It returns nothing when the window
// offers fewer than two sub-spline combinations.
func (b *resampler) resampleSites(pos *position.Position, sites map[int]complex128, n int, ids []int, rng *rand.Rand) []complex128 {
	combos := 1
	for _, sub := range pos.Window.Sub {
		combos *= len(sub)
		if combos >= 2 {
			break
		}
	}
	if combos < 2 {
		return nil
	}
	out := make([]complex128, 0, n)
	splines := make(position.Splines, len(ids))
	for i := 0; i < n; i++ {
		for _, id := range ids {
			sub := pos.Window.Sub[id]
			splines[id] = sub[rng.IntN(len(sub))]
		}
		p, _ := position.Search(sites, splines, *pos.Fix, pos.Window.Objective, b.search)
		out = append(out, p)
	}
	return out
}

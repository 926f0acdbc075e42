package covariance

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/spectrum"
)

// splitAbove is the sample count beyond which case resampling fits C and
// the level radii on disjoint halves.
const splitAbove = 100

// maxDrawFactor bounds rejection sampling at maxDrawFactor*maxResamples
// draws.
const maxDrawFactor = 50

// CaseResample resamples, with replacement, the pulses of every site so
// each resample has as many pulses per site as the window, re-aggregates
// their spectra and recomputes the position. Every distinct resample is
// visited when there are fewer than maxResamples of them; otherwise
// maxResamples distinct ones are drawn at random.
type CaseResample struct{ resampler }

func (*CaseResample) Name() string { return config.CovarianceBoot3 }

// Estimate implements Estimator.
func (c *CaseResample) Estimate(pos *position.Position, sites map[int]complex128) (*Result, error) {
	if !pos.HasFix() {
		return newResult(c.Name(), 0), nil
	}
	r := newResult(c.Name(), *pos.Fix)
	ids := splinesFor(pos, sites).IDs()
	if len(ids) < 2 {
		return r, nil
	}
	counts := make([]int, len(ids))
	for i, id := range ids {
		counts[i] = len(pos.Window.Rows[id])
	}

	var draws [][][]int
	if exhaustive(counts, c.maxResamples) {
		draws = enumerate(counts)
	} else {
		draws = c.sample(counts, c.rand(pos))
	}

	samples := make([]complex128, 0, len(draws))
	splines := make(position.Splines, len(ids))
	for _, draw := range draws {
		for i, id := range ids {
			rows := pos.Window.Rows[id]
			pick := make([][]float64, len(draw[i]))
			for j, k := range draw[i] {
				pick[j] = rows[k]
			}
			s, err := spectrum.NewPeriodicSpline(spectrum.AggregateRows(pick, pos.Window.Normalized))
			if err != nil {
				return r, err
			}
			splines[id] = s
		}
		p, _ := position.Search(sites, splines, *pos.Fix, pos.Window.Objective, c.search)
		samples = append(samples, p)
	}

	r.Samples = len(samples)
	if len(samples) < minSamples {
		return r, nil
	}
	fit, test := samples, samples
	if len(samples) > splitAbove {
		half := len(samples) / 2
		fit, test = samples[half:], samples[:half]
	}
	fromSamples(r, fit, test, 1, 1, c.levels)
	return r, nil
}

// exhaustive reports whether the number of distinct resamples,
// prod_s C(2n_s-1, n_s), is below budget. The product is compared in log
// space first so large sites cannot overflow it.
func exhaustive(counts []int, budget int) bool {
	if budget <= 0 {
		return false
	}
	var logN float64
	for _, n := range counts {
		logN += combin.LogGeneralizedBinomial(float64(2*n-1), float64(n))
	}
	limit := math.Log(float64(budget))
	if logN > limit+1 {
		return false
	}
	total := 1
	for _, n := range counts {
		total *= combin.Binomial(2*n-1, n)
	}
	return total < budget
}

// multisets returns every sorted multiset of size n over 0..n-1, using
// the bijection with n-combinations of 2n-1 items.
func multisets(n int) [][]int {
	combs := combin.Combinations(2*n-1, n)
	for _, c := range combs {
		for j := range c {
			c[j] -= j
		}
	}
	return combs
}

// enumerate returns every distinct resample: for each site one multiset
// of pulse indices.
func enumerate(counts []int) [][][]int {
	perSite := make([][][]int, len(counts))
	lens := make([]int, len(counts))
	for i, n := range counts {
		perSite[i] = multisets(n)
		lens[i] = len(perSite[i])
	}
	product := combin.Cartesian(lens)
	out := make([][][]int, len(product))
	for k, idx := range product {
		draw := make([][]int, len(counts))
		for i, j := range idx {
			draw[i] = perSite[i][j]
		}
		out[k] = draw
	}
	return out
}

// sample draws up to maxResamples distinct resamples by rejection.
func (c *CaseResample) sample(counts []int, rng *rand.Rand) [][][]int {
	seen := make(map[string]bool, c.maxResamples)
	out := make([][][]int, 0, c.maxResamples)
	for tries := 0; len(out) < c.maxResamples && tries < maxDrawFactor*c.maxResamples; tries++ {
		draw := make([][]int, len(counts))
		var key strings.Builder
		for i, n := range counts {
			pick := make([]int, n)
			for j := range pick {
				pick[j] = rng.IntN(n)
			}
			slices.Sort(pick)
			draw[i] = pick
			fmt.Fprint(&key, pick, ";")
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		out = append(out, draw)
	}
	if len(out) < c.maxResamples {
		log.Printf("boot3: drew %d of %d distinct resamples", len(out), c.maxResamples)
	}
	return out
}

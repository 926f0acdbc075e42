package covariance

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/position"
)

// defaultStep is the finite-difference step in metres.
const defaultStep = 0.5

// Asymptotic is the sandwich estimator C = A*B*A where A is the inverse
// Hessian of the joint likelihood at the fix and B the mean outer product
// of per-pulse likelihood gradients. It is only meaningful for normalised
// spectra.
type Asymptotic struct {
	Levels []float64
	Step   float64
}

func (*Asymptotic) Name() string { return config.CovarianceAsymptotic }

// likelihoodAt adapts the joint likelihood to fd's (easting, northing)
// vector form.
func likelihoodAt(sites map[int]complex128, splines position.Splines) func(x []float64) float64 {
	return func(x []float64) float64 {
		return position.Likelihood(sites, splines, complex(x[1], x[0]))
	}
}

// Estimate implements Estimator.
func (a *Asymptotic) Estimate(pos *position.Position, sites map[int]complex128) (*Result, error) {
	if !pos.HasFix() {
		return newResult(a.Name(), 0), nil
	}
	r := newResult(a.Name(), *pos.Fix)
	if !pos.Window.Normalized {
		return r, ErrNotNormalized
	}
	step := a.Step
	if step <= 0 {
		step = defaultStep
	}
	x0 := []float64{pos.Easting(), pos.Northing()}
	splines := splinesFor(pos, sites)

	hess := mat.NewSymDense(2, nil)
	fd.Hessian(hess, likelihoodAt(sites, splines), x0, &fd.Settings{Step: step})
	var inv mat.Dense
	if err := inv.Inverse(hess); err != nil {
		log.Debugf("asym: hessian: %v", err)
		r.Status = StatusSingular
		return r, nil
	}

	r.M = float64(int(subPerSite(pos)))
	m := int(r.M)
	if m < 1 {
		return r, nil
	}
	b := mat.NewDense(2, 2, nil)
	grad := make([]float64, 2)
	for i := 0; i < m; i++ {
		// sites with fewer than i+1 pulses do not contribute to term i
		per := make(position.Splines)
		for id := range splines {
			if all := pos.Window.All[id]; i < len(all) {
				per[id] = all[i]
			}
		}
		fd.Gradient(grad, likelihoodAt(sites, per), x0, &fd.Settings{Formula: fd.Central, Step: step})
		g := mat.NewVecDense(2, grad)
		b.RankOne(b, 1, g, g)
	}
	b.Scale(1/float64(m), b)

	var c mat.Dense
	c.Product(&inv, b, &inv)
	r.C = mat.NewSymDense(2, nil)
	for i := 0; i < 2; i++ {
		r.C.SetSym(i, i, c.At(i, i))
	}
	r.C.SetSym(0, 1, (c.At(0, 1)+c.At(1, 0))/2)

	chi2 := distuv.ChiSquared{K: 2}
	for _, level := range a.Levels {
		r.W[level] = 2 * chi2.Quantile(level) / r.M
	}
	r.Samples = m
	r.Status = StatusOK
	r.decompose()
	return r, nil
}

package bearing

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/qraat/qraat/internal/signal"
)

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)

// ErrSingular is returned when the MLE model covariance R is not invertible
// for some pulse and bearing.
var ErrSingular = errors.New("bearing: model covariance is singular")

// piN is pi^N for the complex normal density normaliser.
var piN = math.Pow(math.Pi, signal.NumChannels)

// Spectrum is the bearing likelihood of every pulse of one site. Rows[i][b]
// scores bearing b degrees for pulse i.
type Spectrum struct {
	SiteID    int
	Method    string
	Objective Objective
	Rows      [][]float64
}

// Len returns the number of pulses.
func (s *Spectrum) Len() int { return len(s.Rows) }

// Estimator computes a bearing spectrum for the pulses of a site.
type Estimator interface {
	Name() string
	Objective() Objective
	Estimate(site *signal.SiteSignal, sv *signal.SiteSteering) (*Spectrum, error)
}

// New returns the estimator registered under name ("bartlet" or "mle").
func New(name string) (Estimator, error) {
	switch name {
	case "bartlet":
		return Bartlet{}, nil
	case "mle":
		return MLE{}, nil
	}
	return nil, fmt.Errorf("unknown bearing method %q", name)
}

// EstimateAll runs est over every site of store that has a calibration.
// Sites without calibration are skipped; a contract violation drops only
// that site.
func EstimateAll(est Estimator, store *signal.Store, table *signal.SteeringTable) (map[int]*Spectrum, []error) {
	out := make(map[int]*Spectrum)
	var errs []error
	for _, id := range store.SiteIDs() {
		site, _ := store.Site(id)
		sv, ok := table.Site(id)
		if !ok {
			errs = append(errs, &signal.ContractError{SiteID: id, Field: "steering_vectors", Msg: "site has no calibration"})
			continue
		}
		sp, err := est.Estimate(site, sv)
		if err != nil {
			errs = append(errs, fmt.Errorf("site %d: %w", id, err))
			continue
		}
		out[id] = sp
	}
	return out, errs
}

func checkSite(site *signal.SiteSignal, sv *signal.SiteSteering) error {
	if site == nil || sv == nil {
		return &signal.ContractError{Field: "site", Msg: "missing pulses or calibration"}
	}
	if site.SiteID != sv.SiteID {
		return &signal.ContractError{SiteID: site.SiteID, Field: "steering_vectors",
			Msg: fmt.Sprintf("calibration belongs to site %d", sv.SiteID)}
	}
	return nil
}

// Bartlet scores L[i,b] = |V_i . conj(G(b))|^2.
type Bartlet struct{}

func (Bartlet) Name() string         { return "bartlet" }
func (Bartlet) Objective() Objective { return Maximize }

// Estimate implements Estimator.
func (b Bartlet) Estimate(site *signal.SiteSignal, sv *signal.SiteSteering) (*Spectrum, error) {
	if err := checkSite(site, sv); err != nil {
		return nil, err
	}
	rows := make([][]float64, len(site.Pulses))
	for i := range site.Pulses {
		v := &site.Pulses[i].Signal
		row := make([]float64, signal.NumBearings)
		for deg := 0; deg < signal.NumBearings; deg++ {
			g := sv.At(deg)
			var acc complex128
			for ch := 0; ch < signal.NumChannels; ch++ {
				acc += v[ch] * cmplx.Conj(g[ch])
			}
			row[deg] = real(acc * cmplx.Conj(acc))
		}
		rows[i] = row
	}
	return &Spectrum{SiteID: site.SiteID, Method: b.Name(), Objective: b.Objective(), Rows: rows}, nil
}

// MLE scores each bearing by the complex normal log-likelihood of the
// signal vector under R = P*G*G^H + N:
//
//	score = -log(|det R| * pi^N) - |V^H R^-1 V|
type MLE struct{}

func (MLE) Name() string         { return "mle" }
func (MLE) Objective() Objective { return Maximize }

// Estimate implements Estimator.
func (m MLE) Estimate(site *signal.SiteSignal, sv *signal.SiteSteering) (*Spectrum, error) {
	if err := checkSite(site, sv); err != nil {
		return nil, err
	}
	const n = signal.NumChannels
	real2 := mat.NewDense(2*n, 2*n, nil)
	rhs := mat.NewVecDense(2*n, nil)
	var sol mat.VecDense
	var lu mat.LU

	rows := make([][]float64, len(site.Pulses))
	for i := range site.Pulses {
		p := &site.Pulses[i]
		row := make([]float64, signal.NumBearings)
		for deg := 0; deg < signal.NumBearings; deg++ {
			g := sv.At(deg)
			var r signal.Matrix
			for a := 0; a < n; a++ {
				for b := 0; b < n; b++ {
					r[a][b] = complex(p.Power, 0)*g[a]*cmplx.Conj(g[b]) + p.NoiseCov[a][b]
				}
			}
			score, err := mleScore(&r, &p.Signal, real2, rhs, &sol, &lu)
			if err != nil {
				return nil, fmt.Errorf("pulse %d bearing %d: %w", p.ID, deg, err)
			}
			row[deg] = score
		}
		rows[i] = row
	}
	return &Spectrum{SiteID: site.SiteID, Method: m.Name(), Objective: m.Objective(), Rows: rows}, nil
}

// mleScore evaluates the score through the real 2N x 2N embedding
// [[Re R, -Im R], [Im R, Re R]], whose determinant is |det R|^2.
func mleScore(r *signal.Matrix, v *signal.Vector, real2 *mat.Dense, rhs *mat.VecDense, sol *mat.VecDense, lu *mat.LU) (float64, error) {
	const n = signal.NumChannels
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			re, im := real(r[a][b]), imag(r[a][b])
			real2.Set(a, b, re)
			real2.Set(a, b+n, -im)
			real2.Set(a+n, b, im)
			real2.Set(a+n, b+n, re)
		}
		rhs.SetVec(a, real(v[a]))
		rhs.SetVec(a+n, imag(v[a]))
	}

	lu.Factorize(real2)
	det := lu.Det()
	if det <= 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return 0, ErrSingular
	}
	if err := lu.SolveVecTo(sol, false, rhs); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	// V^H (R^-1 V)
	var quad complex128
	for a := 0; a < n; a++ {
		y := complex(sol.AtVec(a), sol.AtVec(a+n))
		quad += cmplx.Conj(v[a]) * y
	}
	absDet := math.Sqrt(det)
	return -math.Log(absDet*piN) - cmplx.Abs(quad), nil
}

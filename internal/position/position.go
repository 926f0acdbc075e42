package position

import (
	"fmt"
	"math"

	"github.com/qraat/qraat/internal/bearing"
	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/monitoring"
	"github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/spectrum"
)

var log = monitoring.Component("position")

// Position is the estimate for one time window. Fix is nil when fewer than
// two sites contributed; Likelihood is NaN in that case.
type Position struct {
	DeploymentID int
	Timestamp    float64 // window midpoint
	Start, End   float64

	Fix        *complex128
	Likelihood float64
	Activity   float64

	Bearings  map[int]spectrum.SiteSummary
	NumSites  int
	NumPulses int

	// Window retains the splines the estimate was computed from, for the
	// covariance estimators.
	Window *spectrum.Window
}

// HasFix reports whether a position was resolved.
func (p *Position) HasFix() bool { return p.Fix != nil }

// Easting returns the UTM easting of the fix.
func (p *Position) Easting() float64 { return imag(*p.Fix) }

// Northing returns the UTM northing of the fix.
func (p *Position) Northing() float64 { return real(*p.Fix) }

func (p *Position) String() string {
	if p.Fix == nil {
		return fmt.Sprintf("t=%.1f no fix (%d sites)", p.Timestamp, p.NumSites)
	}
	return fmt.Sprintf("t=%.1f e=%.1f n=%.1f ll=%.4g sites=%d pulses=%d",
		p.Timestamp, p.Easting(), p.Northing(), p.Likelihood, p.NumSites, p.NumPulses)
}

// Estimator computes positions for one deployment.
type Estimator struct {
	DeploymentID int
	Sites        map[int]complex128
	Center       complex128
	Params       config.Params
}

// NewEstimator returns an estimator centred on the site centroid.
func NewEstimator(deploymentID int, sites map[int]complex128, params config.Params) *Estimator {
	var c complex128
	for _, p := range sites {
		c += p
	}
	if len(sites) > 0 {
		c /= complex(float64(len(sites)), 0)
	}
	return &Estimator{DeploymentID: deploymentID, Sites: sites, Center: c, Params: params}
}

// Spectra computes the bearing spectrum of every calibrated site of store
// with the configured method.
func (e *Estimator) Spectra(store *signal.Store, table *signal.SteeringTable) (map[int]*bearing.Spectrum, error) {
	est, err := bearing.New(e.Params.BearingMethod)
	if err != nil {
		return nil, err
	}
	spectra, errs := bearing.EstimateAll(est, store, table)
	for _, err := range errs {
		log.Printf("dropping site: %v", err)
	}
	return spectra, nil
}

// Estimate aggregates the spectra over [t0, t1) and searches for the
// transmitter.
func (e *Estimator) Estimate(spectra map[int]*bearing.Spectrum, store *signal.Store, t0, t1 float64) *Position {
	w := spectrum.Aggregate(spectra, store, t0, t1, e.Params.Normalize)
	return e.FromWindow(w)
}

// FromWindow searches for the transmitter given an aggregated window.
func (e *Estimator) FromWindow(w *spectrum.Window) *Position {
	pos := &Position{
		DeploymentID: e.DeploymentID,
		Timestamp:    (w.Start + w.End) / 2,
		Start:        w.Start,
		End:          w.End,
		Likelihood:   math.NaN(),
		Bearings:     make(map[int]spectrum.SiteSummary, len(w.Sites)),
		Window:       w,
	}

	// Sites without a known position take no part in the search or in
	// the per-site averages.
	splines := make(Splines, len(w.Splines))
	var act float64
	for id, s := range w.Splines {
		if _, ok := e.Sites[id]; !ok {
			log.Debugf("site %d has pulses but no position, ignored", id)
			continue
		}
		splines[id] = s
		sum := w.Sites[id]
		pos.Bearings[id] = sum
		pos.NumPulses += sum.NumPulses
		act += sum.Activity
	}
	pos.NumSites = len(splines)

	if pos.NumSites > 1 {
		p, ll := Search(e.Sites, splines, e.Center, w.Objective, e.Params.Search)
		pos.Fix = &p
		if w.Normalized {
			pos.Likelihood = ll / float64(pos.NumSites)
		} else {
			pos.Likelihood = ll / float64(pos.NumPulses)
		}
	}
	if pos.NumSites > 0 {
		pos.Activity = act / float64(pos.NumSites)
	}
	return pos
}

// EstimateWindowed computes one position per window of the configured step
// and length covering the store's time range. Windows without a fix are
// kept.
func (e *Estimator) EstimateWindowed(spectra map[int]*bearing.Spectrum, store *signal.Store) []*Position {
	if store.Empty() {
		return nil
	}
	windows := Windows(store.TStart, store.TEnd, e.Params.WindowStep, e.Params.WindowLength)
	out := make([]*Position, 0, len(windows))
	for _, win := range windows {
		out = append(out, e.Estimate(spectra, store, win.Start, win.End))
	}
	log.Printf("estimated %d windows over [%.1f, %.1f]", len(out), store.TStart, store.TEnd)
	return out
}

package spectrum

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/qraat/qraat/internal/bearing"
	"github.com/qraat/qraat/internal/signal"
)

// SiteSummary is the aggregated bearing of one site inside a window.
type SiteSummary struct {
	SiteID     int
	Bearing    int     // degrees, argobj of the aggregated spectrum
	Likelihood float64 // aggregated score at Bearing divided by NumPulses
	Activity   float64
	NumPulses  int
	PulseIDs   []int64
}

// Window holds everything derived from the spectra of one time window.
// Splines carries one aggregated spline per contributing site, Sub the
// leave-one-out splines and All one spline per pulse. Rows keeps the raw
// per-pulse spectra so resamplers can re-aggregate them.
//
// Normalized records whether the aggregated vectors were divided by the
// pulse count; it is fixed here and consulted by every consumer.
type Window struct {
	Start, End float64
	Objective  bearing.Objective
	Normalized bool

	Splines map[int]*PeriodicSpline
	Sub     map[int][]*PeriodicSpline
	All     map[int][]*PeriodicSpline
	Rows    map[int][][]float64

	Sites     map[int]SiteSummary
	NumPulses int
}

// SiteIDs returns the contributing sites in ascending order.
func (w *Window) SiteIDs() []int {
	ids := make([]int, 0, len(w.Splines))
	for id := range w.Splines {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NumSites returns the number of contributing sites.
func (w *Window) NumSites() int { return len(w.Splines) }

// AggregateRows sums a set of per-pulse spectra, dividing by the number of
// rows when normalize is set.
func AggregateRows(rows [][]float64, normalize bool) []float64 {
	out := make([]float64, signal.NumBearings)
	for _, r := range rows {
		floats.Add(out, r)
	}
	if normalize && len(rows) > 0 {
		floats.Scale(1/float64(len(rows)), out)
	}
	return out
}

// Aggregate restricts every site's spectrum to pulses with t0 <= t < t1
// and builds the window's splines. Sites with no pulse in the window are
// left out.
func Aggregate(spectra map[int]*bearing.Spectrum, store *signal.Store, t0, t1 float64, normalize bool) *Window {
	w := &Window{
		Start:      t0,
		End:        t1,
		Normalized: normalize,
		Splines:    make(map[int]*PeriodicSpline),
		Sub:        make(map[int][]*PeriodicSpline),
		All:        make(map[int][]*PeriodicSpline),
		Rows:       make(map[int][][]float64),
		Sites:      make(map[int]SiteSummary),
	}

	ids := make([]int, 0, len(spectra))
	for id := range spectra {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for i, id := range ids {
		spec := spectra[id]
		if i == 0 {
			w.Objective = spec.Objective
		}
		site, ok := store.Site(id)
		if !ok {
			continue
		}
		lo, hi := site.Window(t0, t1)
		if hi <= lo {
			continue
		}
		rows := spec.Rows[lo:hi]
		pulses := site.Pulses[lo:hi]

		p := AggregateRows(rows, normalize)
		w.Splines[id] = mustSpline(p)
		w.Sub[id] = subSplines(rows, normalize)
		all := make([]*PeriodicSpline, len(rows))
		for j, r := range rows {
			all[j] = mustSpline(r)
		}
		w.All[id] = all
		w.Rows[id] = rows

		theta := spec.Objective.Best(p)
		summary := SiteSummary{
			SiteID:     id,
			Bearing:    theta,
			Likelihood: p[theta] / float64(len(rows)),
			Activity:   activity(pulses),
			NumPulses:  len(rows),
			PulseIDs:   make([]int64, len(pulses)),
		}
		for j := range pulses {
			summary.PulseIDs[j] = pulses[j].ID
		}
		w.Sites[id] = summary
		w.NumPulses += len(rows)
	}
	return w
}

// subSplines returns the leave-one-out splines of a site. With one or two
// pulses there are too few for a combination to differ from a single
// pulse, so the per-pulse splines are used directly.
func subSplines(rows [][]float64, normalize bool) []*PeriodicSpline {
	switch len(rows) {
	case 0:
		return nil
	case 1, 2:
		out := make([]*PeriodicSpline, len(rows))
		for i, r := range rows {
			out[i] = mustSpline(r)
		}
		return out
	}
	combs := combin.Combinations(len(rows), len(rows)-1)
	out := make([]*PeriodicSpline, len(combs))
	subset := make([][]float64, len(rows)-1)
	for i, idx := range combs {
		for j, k := range idx {
			subset[j] = rows[k]
		}
		out[i] = mustSpline(AggregateRows(subset, normalize))
	}
	return out
}

// activity is the spread of pulse power relative to its total:
// sqrt(sum((edsp - mean)^2)) / sum(edsp).
func activity(pulses []signal.Pulse) float64 {
	edsp := make([]float64, len(pulses))
	for i := range pulses {
		edsp[i] = pulses[i].Power
	}
	total := floats.Sum(edsp)
	if total == 0 {
		return 0
	}
	mean := total / float64(len(edsp))
	var ss float64
	for _, e := range edsp {
		ss += (e - mean) * (e - mean)
	}
	return math.Sqrt(ss) / total
}

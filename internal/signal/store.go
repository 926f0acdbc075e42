package signal

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// hermitianTol bounds |N[i][j] - conj(N[j][i])| relative to the diagonal.
const hermitianTol = 1e-6

// Pulse is one detected transmitter pulse at one site. Pulses are
// immutable once read.
type Pulse struct {
	ID         int64
	SiteID     int
	Timestamp  float64
	Signal     Vector
	NoiseCov   Matrix
	Power      float64 // edsp
	NoisePower float64 // tnp
}

// Validate checks the record against the input contract.
func (p *Pulse) Validate() error {
	bad := func(field, msg string) error {
		return &ContractError{SiteID: p.SiteID, PulseID: p.ID, Field: field, Msg: msg}
	}
	if math.IsNaN(p.Timestamp) || math.IsInf(p.Timestamp, 0) {
		return bad("timestamp", "not finite")
	}
	if math.IsNaN(p.Power) || math.IsInf(p.Power, 0) || p.Power < 0 {
		return bad("edsp", fmt.Sprintf("invalid power %v", p.Power))
	}
	for i, v := range p.Signal {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return bad(fmt.Sprintf("ed%d", i+1), "not finite")
		}
	}
	var scale float64
	for i := 0; i < NumChannels; i++ {
		d := p.NoiseCov[i][i]
		if real(d) < 0 {
			return bad("noise_cov", fmt.Sprintf("negative diagonal at %d", i+1))
		}
		scale = math.Max(scale, cmplx.Abs(d))
	}
	tol := hermitianTol * math.Max(scale, 1)
	for i := 0; i < NumChannels; i++ {
		for j := 0; j < NumChannels; j++ {
			v := p.NoiseCov[i][j]
			if cmplx.IsNaN(v) || cmplx.IsInf(v) {
				return bad(fmt.Sprintf("nc%d%d", i+1, j+1), "not finite")
			}
			if cmplx.Abs(v-cmplx.Conj(p.NoiseCov[j][i])) > tol {
				return bad("noise_cov", fmt.Sprintf("not Hermitian at (%d,%d)", i+1, j+1))
			}
		}
	}
	return nil
}

// SiteSignal is the time-ordered pulse series of one site.
type SiteSignal struct {
	SiteID int
	Pulses []Pulse
}

// Count returns the number of pulses at the site.
func (s *SiteSignal) Count() int { return len(s.Pulses) }

// Window returns the half-open index range [lo, hi) of pulses with
// t0 <= timestamp < t1.
func (s *SiteSignal) Window(t0, t1 float64) (lo, hi int) {
	lo = sort.Search(len(s.Pulses), func(i int) bool { return s.Pulses[i].Timestamp >= t0 })
	hi = sort.Search(len(s.Pulses), func(i int) bool { return s.Pulses[i].Timestamp >= t1 })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Store holds the pulses of one deployment over a time range, split by site.
type Store struct {
	DeploymentID int
	TStart, TEnd float64

	// Rejected lists pulses dropped for violating the input contract.
	Rejected []error

	sites map[int]*SiteSignal
}

// NewStore validates pulses and splits them per site in timestamp order.
// Invalid pulses are dropped and recorded in Rejected.
func NewStore(deploymentID int, pulses []Pulse) *Store {
	s := &Store{
		DeploymentID: deploymentID,
		TStart:       math.Inf(1),
		TEnd:         math.Inf(-1),
		sites:        make(map[int]*SiteSignal),
	}
	for i := range pulses {
		p := pulses[i]
		if err := p.Validate(); err != nil {
			s.Rejected = append(s.Rejected, err)
			continue
		}
		site, ok := s.sites[p.SiteID]
		if !ok {
			site = &SiteSignal{SiteID: p.SiteID}
			s.sites[p.SiteID] = site
		}
		site.Pulses = append(site.Pulses, p)
		s.TStart = math.Min(s.TStart, p.Timestamp)
		s.TEnd = math.Max(s.TEnd, p.Timestamp)
	}
	for _, site := range s.sites {
		sort.SliceStable(site.Pulses, func(i, j int) bool {
			return site.Pulses[i].Timestamp < site.Pulses[j].Timestamp
		})
	}
	return s
}

// Site returns the pulses recorded at a site.
func (s *Store) Site(siteID int) (*SiteSignal, bool) {
	site, ok := s.sites[siteID]
	return site, ok
}

// SiteIDs returns the sites with at least one pulse, ascending.
func (s *Store) SiteIDs() []int {
	ids := make([]int, 0, len(s.sites))
	for id := range s.sites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the total number of accepted pulses.
func (s *Store) Len() int {
	n := 0
	for _, site := range s.sites {
		n += len(site.Pulses)
	}
	return n
}

// Empty reports whether the store holds no pulses.
func (s *Store) Empty() bool { return len(s.sites) == 0 }

// NoiseEstimate summarises signal and noise power at one site.
type NoiseEstimate struct {
	SignalMean, SignalStd float64
	NoiseMean, NoiseStd   float64
}

// EstimateNoise returns per-site statistics of the signal power
// (edsp - trace(N)) and the per-channel noise power (trace(N) / channels).
func (s *Store) EstimateNoise() map[int]NoiseEstimate {
	out := make(map[int]NoiseEstimate, len(s.sites))
	for id, site := range s.sites {
		sig := make([]float64, len(site.Pulses))
		noise := make([]float64, len(site.Pulses))
		for i, p := range site.Pulses {
			var tr float64
			for c := 0; c < NumChannels; c++ {
				tr += real(p.NoiseCov[c][c])
			}
			sig[i] = p.Power - tr
			noise[i] = tr / NumChannels
		}
		var est NoiseEstimate
		est.SignalMean, est.SignalStd = meanStd(sig)
		est.NoiseMean, est.NoiseStd = meanStd(noise)
		out[id] = est
	}
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(x []float64) (float64, float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(variance)
}

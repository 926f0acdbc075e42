// Package sim generates synthetic pulse records from the signal model used
// by the estimators: an inverse-square transmission coefficient times the
// site's steering vector plus circularly symmetric complex normal noise.
package sim

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/spectrum"
)

// channelSplines interpolates the in-phase and quadrature parts of one
// site's steering vectors so non-integer bearings can be modelled.
type channelSplines [signal.NumChannels][2]*spectrum.PeriodicSpline

// Simulator draws pulses for a transmitter at an arbitrary position.
type Simulator struct {
	Sites map[int]complex128
	Rho   float64 // transmission power
	SigN  float64 // per-channel noise variance

	splines map[int]*channelSplines
	noise   distuv.Normal
	nextID  int64
}

// New builds a simulator for every site that has both a position and a
// calibration. seed fixes the noise stream.
func New(sites map[int]complex128, table *signal.SteeringTable, rho, sigN float64, seed uint64) (*Simulator, error) {
	if sigN < 0 {
		return nil, fmt.Errorf("noise variance must be non-negative, got %v", sigN)
	}
	s := &Simulator{
		Sites:   make(map[int]complex128),
		Rho:     rho,
		SigN:    sigN,
		splines: make(map[int]*channelSplines),
		noise: distuv.Normal{
			Mu:    0,
			Sigma: math.Sqrt(0.5 * sigN),
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
		nextID: 1,
	}
	for id, p := range sites {
		sv, ok := table.Site(id)
		if !ok {
			continue
		}
		var cs channelSplines
		for ch := 0; ch < signal.NumChannels; ch++ {
			resp := sv.Channel(ch)
			re := make([]float64, signal.NumBearings)
			im := make([]float64, signal.NumBearings)
			for b, v := range resp {
				re[b], im[b] = real(v), imag(v)
			}
			var err error
			if cs[ch][0], err = spectrum.NewPeriodicSpline(re); err != nil {
				return nil, err
			}
			if cs[ch][1], err = spectrum.NewPeriodicSpline(im); err != nil {
				return nil, err
			}
		}
		s.Sites[id] = p
		s.splines[id] = &cs
	}
	if len(s.Sites) == 0 {
		return nil, fmt.Errorf("no site has a calibration")
	}
	return s, nil
}

// SiteIDs returns the simulated sites, ascending.
func (s *Simulator) SiteIDs() []int {
	ids := make([]int, 0, len(s.Sites))
	for id := range s.Sites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Steering returns the interpolated steering vector of a site at a real
// bearing in degrees.
func (s *Simulator) Steering(siteID int, theta float64) signal.Vector {
	var g signal.Vector
	cs := s.splines[siteID]
	for ch := 0; ch < signal.NumChannels; ch++ {
		g[ch] = complex(cs[ch][0].At(theta), cs[ch][1].At(theta))
	}
	return g
}

// Pulses generates count pulses per site for a transmitter at p, with
// timestamps t0, t0+1, ... Pulse IDs are unique for the simulator's
// lifetime.
func (s *Simulator) Pulses(p complex128, t0 float64, count int) ([]signal.Pulse, error) {
	var noiseCov signal.Matrix
	for c := 0; c < signal.NumChannels; c++ {
		noiseCov[c][c] = complex(s.SigN, 0)
	}
	edsp := s.Rho * s.Rho
	tnp := float64(signal.NumChannels) * s.SigN

	var out []signal.Pulse
	for _, id := range s.SiteIDs() {
		d := cmplx.Abs(p - s.Sites[id])
		if d == 0 {
			return nil, fmt.Errorf("transmitter coincides with site %d", id)
		}
		coeff := complex(math.Sqrt(s.Rho/(d*d)), 0)
		theta := cmplx.Phase(p-s.Sites[id]) * 180 / math.Pi
		g := s.Steering(id, theta)
		for i := 0; i < count; i++ {
			var v signal.Vector
			for ch := range v {
				v[ch] = coeff*g[ch] + complex(s.noise.Rand(), s.noise.Rand())
			}
			out = append(out, signal.Pulse{
				ID:         s.nextID,
				SiteID:     id,
				Timestamp:  t0 + float64(i),
				Signal:     v,
				NoiseCov:   noiseCov,
				Power:      edsp,
				NoisePower: tnp,
			})
			s.nextID++
		}
	}
	return out, nil
}

// ScaleTxCoefficient returns the transmission power that makes the
// coefficient at the site nearest p equal to rho.
func ScaleTxCoefficient(p complex128, rho float64, sites map[int]complex128) float64 {
	nearest := math.Inf(1)
	for _, q := range sites {
		nearest = math.Min(nearest, cmplx.Abs(p-q))
	}
	return (rho * nearest) * (rho * nearest)
}

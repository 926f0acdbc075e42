// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the three-site deployment used by the
// estimation tests so expectations stay comparable across packages.
package testutil

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/sim"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test if got and want differ by more than tol.
func AssertClose(t *testing.T, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("got %v, want %v (tolerance %v)", got, want, tol)
	}
}

// AssertNear fails the test if points p and q are further apart than tol
// metres.
func AssertNear(t *testing.T, p, q complex128, tol float64) {
	t.Helper()
	if d := cmplx.Abs(p - q); math.IsNaN(d) || d > tol {
		t.Errorf("point %v is %.3f m from %v, want <= %v", p, d, q, tol)
	}
}

// Fixture is a synthetic deployment with a uniform circular array
// calibration at every site.
type Fixture struct {
	Sites map[int]complex128
	Table *signal.SteeringTable
	Sim   *sim.Simulator
}

// Transmitter is the fixture's default transmitter location: easting 500,
// northing 300.
const Transmitter = complex(300, 500)

// ThreeSiteFixture returns sites at easting/northing (0,0), (1000,0) and
// (500,1000). sigN is the per-channel noise variance of the simulator.
func ThreeSiteFixture(t *testing.T, sigN float64, seed uint64) *Fixture {
	t.Helper()
	sites := map[int]complex128{
		1: complex(0, 0),
		2: complex(0, 1000),
		3: complex(1000, 500),
	}
	table := signal.CircularArrayTable(1, 1.0, 1, 2, 3)
	s, err := sim.New(sites, table, 1, sigN, seed)
	AssertNoError(t, err)
	return &Fixture{Sites: sites, Table: table, Sim: s}
}

// Store simulates count pulses per site from p starting at t0.
func (f *Fixture) Store(t *testing.T, p complex128, t0 float64, count int) *signal.Store {
	t.Helper()
	pulses, err := f.Sim.Pulses(p, t0, count)
	AssertNoError(t, err)
	return signal.NewStore(1, pulses)
}

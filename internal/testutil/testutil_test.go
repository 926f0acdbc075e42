package testutil

import (
	"errors"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("test error"))
}

func TestAssertClose(t *testing.T) {
	t.Parallel()

	AssertClose(t, 1.0000001, 1, 1e-6)
	AssertNear(t, complex(3, 4), 0, 5)
}

func TestThreeSiteFixture(t *testing.T) {
	t.Parallel()

	f := ThreeSiteFixture(t, 0, 1)
	if len(f.Sites) != 3 {
		t.Fatalf("got %d sites, want 3", len(f.Sites))
	}
	store := f.Store(t, Transmitter, 0, 4)
	if store.Len() != 12 {
		t.Errorf("store has %d pulses, want 12", store.Len())
	}
	if len(store.Rejected) != 0 {
		t.Errorf("rejected pulses: %v", store.Rejected)
	}
}

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qraat/qraat/internal/bearing"
	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/covariance"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/testutil"
)

func testParams() config.Params {
	p := config.DefaultParams()
	p.Search = config.SearchParams{HalfSpan: 10, Coarse: 2, Fine: 0, ScaleBase: 10, EdgeRetries: 3}
	p.WindowStep = 5
	p.WindowLength = 10
	p.Covariance = config.CovarianceParams{Method: config.CovarianceBoot3, MaxResamples: 20, Levels: []float64{0.68, 0.95}, Seed: 3}
	return p
}

type fixture struct {
	spectra map[int]*bearing.Spectrum
	store   *signal.Store
	est     *position.Estimator
	cov     covariance.Estimator
}

// 20 pulses per site at t = 0..19 give windows starting at -5, 0, 5, 10, 15.
// Edge windows hold as few as 5 pulses per site; at this noise level a fix
// lands within a few metres of the transmitter.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := testutil.ThreeSiteFixture(t, 1e-8, 7)
	store := f.Store(t, testutil.Transmitter, 0, 20)
	params := testParams()
	est := position.NewEstimator(1, f.Sites, params)
	spectra, err := est.Spectra(store, f.Table)
	require.NoError(t, err)
	cov, err := covariance.New(params.Covariance, params.Search)
	require.NoError(t, err)
	return &fixture{spectra: spectra, store: store, est: est, cov: cov}
}

func (f *fixture) runner(workers int) *Runner {
	r := NewRunner(f.est, f.cov)
	r.Workers = workers
	r.QueueDepth = 2
	return r
}

func TestRunSynchronous(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	results, err := f.runner(0).Collect(context.Background(), f.spectra, f.store)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, i, res.Window.Index)
		require.True(t, res.Position.HasFix(), "window %d", i)
		testutil.AssertNear(t, *res.Position.Fix, testutil.Transmitter, 12)
		require.NotNil(t, res.Covariance)
		assert.Equal(t, config.CovarianceBoot3, res.Covariance.Method)
	}
	assert.Equal(t, -5.0, results[0].Window.Start)
}

func TestRunPoolMatchesSynchronous(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	want, err := f.runner(0).Collect(context.Background(), f.spectra, f.store)
	require.NoError(t, err)

	for _, workers := range []int{1, 3, 8} {
		got, err := f.runner(workers).Collect(context.Background(), f.spectra, f.store)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Window, got[i].Window, "workers=%d", workers)
			assert.Equal(t, *want[i].Position.Fix, *got[i].Position.Fix, "workers=%d window %d", workers, i)
			assert.Equal(t, want[i].Covariance.Samples, got[i].Covariance.Samples)
			assert.Equal(t, want[i].Covariance.Status, got[i].Covariance.Status)
		}
	}
}

func TestRunWithoutCovariance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cov = nil
	results, err := f.runner(2).Collect(context.Background(), f.spectra, f.store)
	require.NoError(t, err)
	for _, res := range results {
		assert.Nil(t, res.Covariance)
	}
}

func TestRunStopsOnEmitError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	stop := errors.New("sink full")
	for _, workers := range []int{0, 4} {
		n := 0
		err := f.runner(workers).Run(context.Background(), f.spectra, f.store, func(Result) error {
			n++
			if n == 2 {
				return stop
			}
			return nil
		})
		assert.ErrorIs(t, err, stop, "workers=%d", workers)
		assert.Equal(t, 2, n)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{0, 4} {
		_, err := f.runner(workers).Collect(ctx, f.spectra, f.store)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRunEmptyStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	results, err := f.runner(2).Collect(context.Background(), f.spectra, signal.NewStore(1, nil))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReorder(t *testing.T) {
	t.Parallel()

	at := func(i int) Result { return Result{Window: position.Interval{Index: i}} }
	index := func(rs []Result) []int {
		out := make([]int, len(rs))
		for i, r := range rs {
			out[i] = r.Window.Index
		}
		return out
	}

	var q reorder
	assert.Empty(t, q.add(at(2)))
	assert.Empty(t, q.add(at(3)))
	assert.Equal(t, []int{0}, index(q.add(at(0))))
	assert.Equal(t, []int{1, 2, 3}, index(q.add(at(1))))
	assert.Equal(t, []int{4}, index(q.add(at(4))))
}

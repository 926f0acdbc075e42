package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/qraat/qraat/internal/bearing"
	"github.com/qraat/qraat/internal/covariance"
	"github.com/qraat/qraat/internal/monitoring"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/signal"
)

var log = monitoring.Component("pipeline")

// Result is the outcome of one window. Covariance is nil when no
// covariance method is configured or the window produced no fix.
type Result struct {
	Window     position.Interval
	Position   *position.Position
	Covariance *covariance.Result
}

// Runner estimates every window of a store. The spectra, store and
// estimators are only read, so windows are independent.
type Runner struct {
	Position   *position.Estimator
	Covariance covariance.Estimator

	// Workers is the pool size; 0 runs every window on the caller's
	// goroutine.
	Workers    int
	QueueDepth int
}

// NewRunner returns a runner sized from the estimator's params.
func NewRunner(est *position.Estimator, cov covariance.Estimator) *Runner {
	return &Runner{
		Position:   est,
		Covariance: cov,
		Workers:    est.Params.Workers,
		QueueDepth: est.Params.QueueDepth,
	}
}

// Windows returns the estimation windows covering the store.
func (r *Runner) Windows(store *signal.Store) []position.Interval {
	if store.Empty() {
		return nil
	}
	p := r.Position.Params
	return position.Windows(store.TStart, store.TEnd, p.WindowStep, p.WindowLength)
}

// estimate computes one window.
func (r *Runner) estimate(spectra map[int]*bearing.Spectrum, store *signal.Store, win position.Interval) (Result, error) {
	pos := r.Position.Estimate(spectra, store, win.Start, win.End)
	res := Result{Window: win, Position: pos}
	if r.Covariance == nil || !pos.HasFix() {
		return res, nil
	}
	cov, err := r.Covariance.Estimate(pos, r.Position.Sites)
	if err != nil {
		return res, fmt.Errorf("failed to estimate %s covariance at t=%.1f: %w", r.Covariance.Name(), pos.Timestamp, err)
	}
	if cov.Status != covariance.StatusOK {
		log.Debugf("t=%.1f %s covariance %s", pos.Timestamp, cov.Method, cov.Status)
	}
	res.Covariance = cov
	return res, nil
}

// Run estimates every window and calls emit once per window in ascending
// window order, from a single goroutine. Run stops at the first error
// from a window or from emit, or when ctx is done.
func (r *Runner) Run(ctx context.Context, spectra map[int]*bearing.Spectrum, store *signal.Store, emit func(Result) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	windows := r.Windows(store)
	if r.Workers <= 0 {
		return r.runSync(ctx, spectra, store, windows, emit)
	}
	return r.runPool(ctx, spectra, store, windows, emit)
}

func (r *Runner) runSync(ctx context.Context, spectra map[int]*bearing.Spectrum, store *signal.Store, windows []position.Interval, emit func(Result) error) error {
	for _, win := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := r.estimate(spectra, store, win)
		if err != nil {
			return err
		}
		if err := emit(res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runPool(ctx context.Context, spectra map[int]*bearing.Spectrum, store *signal.Store, windows []position.Interval, emit func(Result) error) error {
	depth := r.QueueDepth
	if depth < 1 {
		depth = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan position.Interval, depth)
	results := make(chan Result, depth)

	g.Go(func() error {
		defer close(jobs)
		for _, win := range windows {
			select {
			case jobs <- win:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < r.Workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for win := range jobs {
				res, err := r.estimate(spectra, store, win)
				if err != nil {
					return err
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		var q reorder
		for res := range results {
			for _, ready := range q.add(res) {
				if err := emit(ready); err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("estimated %d windows with %d workers", len(windows), r.Workers)
	return nil
}

// Collect runs the pipeline and returns every result in window order.
func (r *Runner) Collect(ctx context.Context, spectra map[int]*bearing.Spectrum, store *signal.Store) ([]Result, error) {
	var out []Result
	err := r.Run(ctx, spectra, store, func(res Result) error {
		out = append(out, res)
		return nil
	})
	return out, err
}

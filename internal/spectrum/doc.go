// Package spectrum owns aggregation of per-pulse bearing spectra inside a
// time window into periodic splines, one per site, together with the
// leave-one-out and per-pulse splines the covariance estimators resample.
//
// Responsibilities: window selection, optional normalisation by pulse
// count, per-site bearing and activity summaries.
// Key types: PeriodicSpline, Window, SiteSummary.
//
// Dependency rule: spectrum depends on internal/signal and
// internal/bearing only.
package spectrum

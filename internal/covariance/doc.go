// Package covariance owns uncertainty estimation for a position fix: a 2x2
// covariance in (easting, northing) and per-confidence-level scale factors
// from which confidence ellipses are drawn.
//
// Responsibilities: the asymptotic sandwich estimator, the all-site and
// site-pair sub-spline bootstraps, case resampling of per-pulse spectra,
// and ellipse geometry.
// Key types: Estimator, Result, Ellipse, Status.
//
// Dependency rule: covariance depends on internal/position and below.
// Numerical failures never propagate as errors; they are recorded in
// Result.Status and surface only when an ellipse is requested.
package covariance

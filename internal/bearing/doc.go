// Package bearing owns direction-of-arrival estimation: it turns the
// pulses of one site and that site's steering table into a
// [pulses x 360] bearing likelihood matrix.
//
// Responsibilities: Bartlet's estimator, the Gaussian signal-plus-noise
// MLE, and the Objective tag that tells downstream layers whether larger
// or smaller scores are better.
// Key types: Spectrum, Estimator, Objective.
//
// Dependency rule: bearing depends only on internal/signal.
package bearing

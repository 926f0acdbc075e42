// Package pipeline runs the per-window position and covariance estimates
// of one transmitter, optionally on a fixed pool of workers. Results are
// always delivered in window order.
package pipeline

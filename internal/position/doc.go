// Package position owns transmitter localisation: a multi-resolution grid
// search over the joint bearing likelihood of all contributing sites.
//
// Responsibilities: likelihood surfaces, the grid search with edge
// recentering, window scheduling and the Position record written
// downstream.
// Key types: Position, Estimator, Interval.
//
// Dependency rule: position depends on internal/spectrum, internal/bearing,
// internal/signal and internal/config. It never touches storage.
package position

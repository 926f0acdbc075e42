// Package signal owns the leaf data of the estimation pipeline: the
// per-site steering vector calibration table and the time-ordered pulse
// signal records of one transmitter.
//
// Responsibilities: shape and consistency checks on calibration and pulse
// data, per-site splitting, time-window selection.
// Key types: SteeringTable, SiteSteering, Pulse, Store, SiteSignal.
//
// Dependency rule: signal depends on nothing else in the module. No SQL is
// allowed here; internal/db populates these types.
package signal

// Package track owns track reconstruction: it links time-ordered position
// fixes of one transmitter into a feasibility DAG and extracts the most
// likely trajectory as the DAG's critical path.
//
// Responsibilities: target max-speed families, feasibility graph
// construction, topological sort, critical path, overlapping-window
// reconciliation, connected-component diagnostics and track statistics.
// Key types: Point, MaxSpeed, Graph, Reconstructor.
//
// Dependency rule: track depends only on internal/config and
// internal/monitoring. Positions enter as Points so the package never
// sees splines or storage.
package track

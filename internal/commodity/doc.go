// Package commodity holds the static reference data of the ranking pipeline:
// the classification code ranges and name vocabulary that restrict the
// working set, and the per-acre productivity table.
//
// All values are immutable after construction and are injected into the
// cleaner and the aggregator rather than read from package state.
package commodity

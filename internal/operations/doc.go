// Package operations runs the ranking pipeline end to end.
//
// A run moves through five stages: load, clean, aggregate, rank and
// assemble. Every stage transition is published as an events.RunEvent,
// traced as an OpenTelemetry span and counted in the business metrics.
//
// Pipeline: wires the cleaner, aggregator, engine and assembler from an
// AnalysisConfig. It is cheap to build, so callers that override settings
// per request construct a fresh one.
//
// RunBroadcaster: the EventSink used by the HTTP service. It keeps the
// latest snapshot of each run and forwards every event to the websocket hub.
package operations

// Package server turns handler functions into tools other agents can
// call.
//
// A Server registers descriptors with the shared registry under its own
// agent name and dispatches incoming tool_call envelopes: ownership
// check, parameter validation, execution with panic containment, and
// exactly one result sent back per call. A call moves through received,
// validated and then completed or failed; validation failure is the only
// path to failed that skips execution.
//
// Each dispatch stage emits an observability event (the fabric.call.*
// event types), so an observer can follow a call without the dispatcher
// ever blocking on it.
package server

// Package monitor collects call statistics for the fabric without ever
// sitting on the critical path.
//
// # Design
//
// Record methods are fire-and-forget: each builds an event and attempts a
// non-blocking send onto a buffered channel. A single worker goroutine
// consumes the channel and owns all aggregate state. When the queue is
// full the event is dropped and the DroppedEvents counter incremented;
// a slow or stopped monitor can therefore never stall a tool call or
// change its outcome.
//
// # Recording
//
//	m := monitor.New(monitor.DefaultConfig())
//	defer m.Close()
//
//	m.RecordCallStart(callID, "summarize", "agent-a", "agent-b")
//	// ... call executes ...
//	m.RecordCallEnd(callID, true, "")
//
// Latency is measured between the paired start and end records. An end
// with no matching start (for example after a Reset) is logged at debug
// level and ignored.
//
// # Queries
//
// Statistics are computed on demand from the aggregates:
//
//	stats, ok := m.ToolStats("summarize")
//	overall := m.OverallStats()
//
// OverallStats includes routing counters (messages routed, routing
// failures, dropped late results, discovery requests), the in-flight call
// count, and per-agent-pair interaction counts keyed "from->to". Its
// median latency is served from a bounded window of the newest call
// durations (Config.LatencyWindow, default 1024), keeping monitor memory
// flat however many calls complete.
//
// # Test Support
//
// Because recording is asynchronous, tests call Flush to wait until every
// previously enqueued event has been applied before asserting, and Reset
// to clear aggregates between cases.
package monitor

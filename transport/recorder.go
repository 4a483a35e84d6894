package transport

// Recorder receives transport observations: call lifecycle, routing
// outcomes, and results that arrived after their caller stopped
// waiting. Implementations must not block; the transport calls them
// inline on its hot paths.
type Recorder interface {
	RecordCallStart(callID, toolName, fromAgent, toAgent string)
	RecordCallEnd(callID string, success bool, errMsg string)
	RecordMessageRouted(messageType string)
	RecordRoutingFailure(messageType string)
	RecordDroppedResult(callID string)
}

// noopRecorder is the default when no Recorder is configured.
type noopRecorder struct{}

func (noopRecorder) RecordCallStart(callID, toolName, fromAgent, toAgent string) {}
func (noopRecorder) RecordCallEnd(callID string, success bool, errMsg string)    {}
func (noopRecorder) RecordMessageRouted(messageType string)                      {}
func (noopRecorder) RecordRoutingFailure(messageType string)                     {}
func (noopRecorder) RecordDroppedResult(callID string)                           {}

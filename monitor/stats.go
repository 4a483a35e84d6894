package monitor

import (
	"slices"
	"time"
)

// ToolStats summarizes the completed calls of one tool.
type ToolStats struct {
	ToolName    string        `json:"tool_name"`
	TotalCalls  int64         `json:"total_calls"`
	ErrorCount  int64         `json:"error_count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// OverallStats summarizes activity across the whole fabric.
type OverallStats struct {
	TotalCalls        int64            `json:"total_calls"`
	TotalErrors       int64            `json:"total_errors"`
	SuccessRate       float64          `json:"success_rate"`
	AvgLatency        time.Duration    `json:"avg_latency"`
	MedianLatency     time.Duration    `json:"median_latency"`
	InFlight          int              `json:"in_flight"`
	MessagesRouted    int64            `json:"messages_routed"`
	RoutingFailures   int64            `json:"routing_failures"`
	DroppedResults    int64            `json:"dropped_results"`
	DiscoveryRequests int64            `json:"discovery_requests"`
	DroppedEvents     int64            `json:"dropped_events"`
	AgentInteractions map[string]int64 `json:"agent_interactions"`
}

type toolAggregate struct {
	totalCalls    int64
	errorCount    int64
	totalDuration time.Duration
	minDuration   time.Duration
	maxDuration   time.Duration
}

func (a *toolAggregate) record(duration time.Duration, success bool) {
	a.totalCalls++
	if !success {
		a.errorCount++
	}
	a.totalDuration += duration
	if a.totalCalls == 1 || duration < a.minDuration {
		a.minDuration = duration
	}
	if duration > a.maxDuration {
		a.maxDuration = duration
	}
}

func (a *toolAggregate) snapshot(name string) ToolStats {
	stats := ToolStats{
		ToolName:    name,
		TotalCalls:  a.totalCalls,
		ErrorCount:  a.errorCount,
		MinDuration: a.minDuration,
		MaxDuration: a.maxDuration,
	}
	if a.totalCalls > 0 {
		stats.SuccessRate = float64(a.totalCalls-a.errorCount) / float64(a.totalCalls)
		stats.AvgDuration = a.totalDuration / time.Duration(a.totalCalls)
	}
	return stats
}

// ToolStats returns the stats for one tool, computing rates on demand.
// The second return is false when the tool has no completed calls.
func (m *Monitor) ToolStats(toolName string) (ToolStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg, exists := m.tools[toolName]
	if !exists {
		return ToolStats{}, false
	}
	return agg.snapshot(toolName), true
}

// AllToolStats returns the stats of every tool with at least one
// completed call, keyed by tool name.
func (m *Monitor) AllToolStats() map[string]ToolStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make(map[string]ToolStats, len(m.tools))
	for name, agg := range m.tools {
		all[name] = agg.snapshot(name)
	}
	return all
}

// OverallStats returns fabric-wide totals: call counts and latencies
// across every tool, routing counters, and per-agent-pair interaction
// counts keyed "from->to". MedianLatency is computed over the newest
// completions only (config LatencyWindow), so once total calls exceed
// the window it estimates recent behavior rather than the all-time
// median; counts and AvgLatency always cover every completed call.
func (m *Monitor) OverallStats() OverallStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := OverallStats{
		InFlight:          len(m.inflight),
		MessagesRouted:    m.messagesRouted,
		RoutingFailures:   m.routingFailures,
		DroppedResults:    m.droppedResults,
		DiscoveryRequests: m.discoveryRequests,
		DroppedEvents:     m.droppedEvents.Load(),
		AgentInteractions: make(map[string]int64, len(m.interactions)),
	}
	for pair, count := range m.interactions {
		stats.AgentInteractions[pair] = count
	}

	var totalDuration time.Duration
	for _, agg := range m.tools {
		stats.TotalCalls += agg.totalCalls
		stats.TotalErrors += agg.errorCount
		totalDuration += agg.totalDuration
	}
	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.TotalCalls-stats.TotalErrors) / float64(stats.TotalCalls)
		stats.AvgLatency = totalDuration / time.Duration(stats.TotalCalls)
	}
	stats.MedianLatency = medianDuration(m.latencies)

	return stats
}

// medianDuration returns the median of latencies, averaging the two
// middle values for even counts. Zero when empty.
func medianDuration(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

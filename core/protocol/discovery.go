package protocol

import "strings"

// DiscoveryRequest asks the fabric which tools are available. Empty
// filters match everything; non-empty filters are ANDed together.
type DiscoveryRequest struct {
	Requester      string `json:"requester"`
	AgentFilter    string `json:"agent_filter,omitempty"`
	ToolFilter     string `json:"tool_filter,omitempty"`
	CategoryFilter string `json:"category_filter,omitempty"`
}

// Matches reports whether the descriptor passes every filter on the
// request. AgentFilter and CategoryFilter match exactly; ToolFilter is a
// case-insensitive substring match on the tool name.
func (dr *DiscoveryRequest) Matches(td *ToolDescriptor) bool {
	if dr.AgentFilter != "" && td.AgentName != dr.AgentFilter {
		return false
	}
	if dr.ToolFilter != "" &&
		!strings.Contains(strings.ToLower(td.Name), strings.ToLower(dr.ToolFilter)) {
		return false
	}
	if dr.CategoryFilter != "" && td.Category() != dr.CategoryFilter {
		return false
	}
	return true
}

// DiscoveryResponse lists the descriptors that matched a discovery
// request. Count always equals len(Tools).
type DiscoveryResponse struct {
	Tools []*ToolDescriptor `json:"tools"`
	Count int               `json:"count"`
}

// NewDiscoveryResponse wraps tools in a response with its count filled in.
func NewDiscoveryResponse(tools []*ToolDescriptor) *DiscoveryResponse {
	return &DiscoveryResponse{Tools: tools, Count: len(tools)}
}

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agent-fabric/fabric/core/protocol"
	"github.com/agent-fabric/fabric/transport"
)

// Client is the calling side of an agent: it discovers tools, keeps a
// local descriptor cache and invokes tools through the transport under
// one caller identity.
type Client struct {
	name      string
	transport *transport.Transport
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]*protocol.ToolDescriptor
	order []string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for cache and call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client that sends under the given agent name.
func New(name string, tr *transport.Transport, opts ...Option) *Client {
	c := &Client{
		name:      name,
		transport: tr,
		logger:    slog.Default(),
		cache:     make(map[string]*protocol.ToolDescriptor),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the caller identity stamped on outgoing envelopes.
func (c *Client) Name() string {
	return c.name
}

// DiscoverTools queries the fabric for tools matching the filters and
// merges the response into the local cache. Merging never evicts: a
// name already cached is updated in place, names missing from the
// response are kept. The returned slice is this response only, not the
// cache.
func (c *Client) DiscoverTools(ctx context.Context, agentFilter, toolFilter string) ([]*protocol.ToolDescriptor, error) {
	resp, err := c.discover(ctx, &protocol.DiscoveryRequest{
		Requester:   c.name,
		AgentFilter: agentFilter,
		ToolFilter:  toolFilter,
	})
	if err != nil {
		return nil, err
	}
	c.merge(resp.Tools)
	return resp.Tools, nil
}

// RefreshTools re-runs unfiltered discovery and returns how many tool
// names were seen for the first time.
func (c *Client) RefreshTools(ctx context.Context) (int, error) {
	resp, err := c.discover(ctx, &protocol.DiscoveryRequest{Requester: c.name})
	if err != nil {
		return 0, err
	}
	return c.merge(resp.Tools), nil
}

// CallTool invokes a tool by name with the transport's default timeout.
func (c *Client) CallTool(ctx context.Context, toolName string, params map[string]any) (*protocol.ToolResult, error) {
	return c.CallToolWithTimeout(ctx, toolName, params, 0)
}

// CallToolWithTimeout invokes a tool by name, waiting at most timeout
// for the result (zero means the transport default).
//
// A name missing from the cache triggers one targeted discovery before
// the call; if the tool still cannot be resolved the call fails with
// ErrToolNotFound and nothing is sent. Timeouts surface as errors
// wrapping transport.ErrTimeout so callers can decide to retry. Every
// other transport failure is folded into a ToolResult with Success
// false, keeping one result shape to branch on.
func (c *Client) CallToolWithTimeout(ctx context.Context, toolName string, params map[string]any, timeout time.Duration) (*protocol.ToolResult, error) {
	descriptor, ok := c.CachedTool(toolName)
	if !ok {
		if _, err := c.DiscoverTools(ctx, "", toolName); err != nil {
			c.logger.DebugContext(
				ctx,
				"targeted discovery failed",
				slog.String("client", c.name),
				slog.String("tool", toolName),
				slog.String("error", err.Error()),
			)
		}
		if descriptor, ok = c.CachedTool(toolName); !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
		}
	}

	call := protocol.NewToolCall(toolName, params)
	if timeout > 0 {
		call = call.WithTimeout(timeout)
	}

	result, err := c.transport.SendToolCall(ctx, c.name, descriptor.AgentName, call)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			return nil, err
		}
		c.logger.DebugContext(
			ctx,
			"tool call failed in transport",
			slog.String("client", c.name),
			slog.String("tool", toolName),
			slog.String("error", err.Error()),
		)
		return protocol.NewToolResultError(call.CallID, err.Error(), 0), nil
	}
	return result, nil
}

// CallToolByCapability picks a cached tool whose name or description
// contains the capability text (case-insensitive) and invokes it.
// Selection is deterministic: a tool named exactly like the capability
// wins outright, otherwise the match with the shortest description,
// with ties broken by name. Only the cache is consulted; discover
// before calling by capability.
func (c *Client) CallToolByCapability(ctx context.Context, capability string, params map[string]any) (*protocol.ToolResult, error) {
	descriptor, ok := c.matchCapability(capability)
	if !ok {
		return nil, fmt.Errorf("%w: no cached tool matches capability %q", ErrToolNotFound, capability)
	}
	c.logger.DebugContext(
		ctx,
		"capability resolved",
		slog.String("client", c.name),
		slog.String("capability", capability),
		slog.String("tool", descriptor.Name),
	)
	return c.CallTool(ctx, descriptor.Name, params)
}

// CachedTool returns a copy of the cached descriptor for a name.
func (c *Client) CachedTool(name string) (*protocol.ToolDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptor, ok := c.cache[name]
	if !ok {
		return nil, false
	}
	return descriptor.Clone(), true
}

// CachedTools returns copies of every cached descriptor in the order
// their names were first discovered.
func (c *Client) CachedTools() []*protocol.ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools := make([]*protocol.ToolDescriptor, 0, len(c.order))
	for _, name := range c.order {
		tools = append(tools, c.cache[name].Clone())
	}
	return tools
}

// CacheSize returns the number of cached tool names.
func (c *Client) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Client) discover(ctx context.Context, req *protocol.DiscoveryRequest) (*protocol.DiscoveryResponse, error) {
	resp, err := c.transport.Discover(ctx, c.name, req)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	return resp, nil
}

// merge folds discovered descriptors into the cache and returns how
// many names were new. First sighting fixes a name's position in the
// iteration order.
func (c *Client) merge(tools []*protocol.ToolDescriptor) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, tool := range tools {
		if tool == nil || tool.Name == "" {
			continue
		}
		if _, exists := c.cache[tool.Name]; !exists {
			c.order = append(c.order, tool.Name)
			added++
		}
		c.cache[tool.Name] = tool.Clone()
	}
	return added
}

func (c *Client) matchCapability(capability string) (*protocol.ToolDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(capability)
	var best *protocol.ToolDescriptor
	for _, name := range c.order {
		candidate := c.cache[name]
		if !candidate.MatchesCapability(capability) {
			continue
		}
		if strings.ToLower(candidate.Name) == needle {
			return candidate.Clone(), true
		}
		if best == nil ||
			len(candidate.Description) < len(best.Description) ||
			(len(candidate.Description) == len(best.Description) && candidate.Name < best.Name) {
			best = candidate
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}

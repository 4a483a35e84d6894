package client_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-fabric/fabric/client"
	"github.com/agent-fabric/fabric/core/protocol"
	"github.com/agent-fabric/fabric/tools"
	"github.com/agent-fabric/fabric/transport"
)

// testFabric wires a registry and its transport handlers the way the
// fabric does, without pulling in the full assembly.
type testFabric struct {
	transport *transport.Transport
	registry  *tools.Registry
}

func newTestFabric(t *testing.T) *testFabric {
	t.Helper()

	registry := tools.NewRegistry()
	cfg := transport.DefaultConfig()
	cfg.Name = "client-test"
	tr := transport.New(context.Background(), cfg)
	t.Cleanup(func() { _ = tr.Shutdown(5 * time.Second) })

	tr.RegisterHandler(protocol.MessageTypeDiscoveryRequest, func(_ context.Context, msg *protocol.Message) (*protocol.Message, error) {
		req, _ := msg.DiscoveryRequest()
		resp := registry.Discover(req)
		return protocol.NewDiscoveryResponseMessage(msg.Receiver, msg.Sender, resp).Build(), nil
	})

	tr.RegisterHandler(protocol.MessageTypeToolCall, func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		call, ok := msg.ToolCall()
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", msg.Payload)
		}
		handler, ok := registry.Handler(call.ToolName)
		if !ok {
			result := protocol.NewToolResultError(call.CallID, "no handler", 0)
			return protocol.NewToolResultMessage(msg.Receiver, msg.Sender, result).Build(), nil
		}

		started := time.Now()
		value, err := handler(ctx, call.Parameters)
		elapsed := time.Since(started)

		var result *protocol.ToolResult
		if err != nil {
			result = protocol.NewToolResultError(call.CallID, err.Error(), elapsed)
		} else {
			result = protocol.NewToolResult(call.CallID, value, elapsed)
		}
		return protocol.NewToolResultMessage(msg.Receiver, msg.Sender, result).Build(), nil
	})

	return &testFabric{transport: tr, registry: registry}
}

func (f *testFabric) register(t *testing.T, agent, name, description string, handler tools.Handler) {
	t.Helper()
	err := f.registry.Register(&protocol.ToolDescriptor{
		Name:        name,
		Description: description,
		AgentName:   agent,
	}, handler)
	require.NoError(t, err)
}

func echo(_ context.Context, params map[string]any) (any, error) {
	return params["text"], nil
}

func TestClient_DiscoverTools(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "payment_lookup", "Look up a payment by id", echo)
	fabric.register(t, "agent-b", "email_send", "Send an email", echo)

	c := client.New("caller", fabric.transport)

	discovered, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, discovered, 2)
	assert.Equal(t, 2, c.CacheSize())

	onlyA, err := c.DiscoverTools(context.Background(), "agent-a", "")
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "payment_lookup", onlyA[0].Name)

	filtered, err := c.DiscoverTools(context.Background(), "", "pay")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "payment_lookup", filtered[0].Name)
}

func TestClient_CallTool(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-b", "echo", "Echo the text parameter", echo)

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	result, err := c.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Result)
}

func TestClient_CallTool_AutoDiscovery(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-b", "echo", "Echo the text parameter", echo)

	// No explicit discovery; the cache miss triggers a targeted one.
	c := client.New("caller", fabric.transport)
	result, err := c.CallTool(context.Background(), "echo", map[string]any{"text": "found you"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "found you", result.Result)
	assert.Equal(t, 1, c.CacheSize())
}

func TestClient_CallTool_NotFound(t *testing.T) {
	fabric := newTestFabric(t)

	c := client.New("caller", fabric.transport)
	_, err := c.CallTool(context.Background(), "nonexistent", nil)
	require.ErrorIs(t, err, client.ErrToolNotFound)

	// Nothing was sent, so no correlation entry can linger.
	assert.Equal(t, 0, fabric.transport.PendingCalls())
}

func TestClient_CallTool_HandlerError(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-b", "fails", "Always fails", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})

	c := client.New("caller", fabric.transport)
	result, err := c.CallTool(context.Background(), "fails", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}

func TestClient_CallToolWithTimeout(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-b", "slow", "Sleeps longer than anyone waits", func(_ context.Context, _ map[string]any) (any, error) {
		time.Sleep(500 * time.Millisecond)
		return "done", nil
	})

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	started := time.Now()
	_, err = c.CallToolWithTimeout(context.Background(), "slow", nil, 50*time.Millisecond)
	require.ErrorIs(t, err, transport.ErrTimeout)
	assert.Less(t, time.Since(started), 400*time.Millisecond)
}

func TestClient_CallTool_NormalizesTransportFailure(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-b", "echo", "Echo the text parameter", echo)

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	require.NoError(t, fabric.transport.Shutdown(5*time.Second))

	result, err := c.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "shut down")
}

func TestClient_CallToolByCapability(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "payment_lookup", "Look up a payment by id", func(_ context.Context, _ map[string]any) (any, error) {
		return "payment", nil
	})
	fabric.register(t, "agent-b", "email_send", "Send an email", func(_ context.Context, _ map[string]any) (any, error) {
		return "email", nil
	})

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	result, err := c.CallToolByCapability(context.Background(), "payment", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "payment", result.Result)
}

func TestClient_CallToolByCapability_ExactNameWins(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "search", "Query the shared index with ranking and pagination", func(_ context.Context, _ map[string]any) (any, error) {
		return "from-search", nil
	})
	fabric.register(t, "agent-b", "web_search", "search", func(_ context.Context, _ map[string]any) (any, error) {
		return "from-web-search", nil
	})

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	// web_search has the shorter description, but the exact name match
	// takes precedence.
	result, err := c.CallToolByCapability(context.Background(), "search", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-search", result.Result)
}

func TestClient_CallToolByCapability_ShortestDescription(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "archive_fetch", "fetch documents from the long-term archive store", func(_ context.Context, _ map[string]any) (any, error) {
		return "from-archive", nil
	})
	fabric.register(t, "agent-b", "cache_fetch", "fetch docs", func(_ context.Context, _ map[string]any) (any, error) {
		return "from-cache", nil
	})

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	result, err := c.CallToolByCapability(context.Background(), "fetch", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-cache", result.Result)
}

func TestClient_CallToolByCapability_TieBreaksByName(t *testing.T) {
	fabric := newTestFabric(t)
	// Descriptions are the same length on purpose.
	fabric.register(t, "agent-a", "beta_report", "builds a report", func(_ context.Context, _ map[string]any) (any, error) {
		return "from-beta", nil
	})
	fabric.register(t, "agent-b", "alpha_report", "writes a report", func(_ context.Context, _ map[string]any) (any, error) {
		return "from-alpha", nil
	})

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	result, err := c.CallToolByCapability(context.Background(), "report", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-alpha", result.Result)
}

func TestClient_CallToolByCapability_NoMatch(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "echo", "Echo the text parameter", echo)

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	_, err = c.CallToolByCapability(context.Background(), "teleportation", nil)
	require.ErrorIs(t, err, client.ErrToolNotFound)
}

func TestClient_RefreshTools(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "first", "the first tool", echo)

	c := client.New("caller", fabric.transport)

	added, err := c.RefreshTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	fabric.register(t, "agent-b", "second", "the second tool", echo)

	added, err = c.RefreshTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = c.RefreshTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 2, c.CacheSize())
}

func TestClient_CacheMergeDoesNotEvict(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "stays", "a tool that stays", echo)
	fabric.register(t, "agent-b", "goes", "a tool that goes away", echo)

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, 2, c.CacheSize())

	require.NoError(t, fabric.registry.Unregister("goes"))

	added, err := c.RefreshTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	// The departed tool is still cached; staleness is the caller's
	// trade for cheap lookups.
	assert.Equal(t, 2, c.CacheSize())
	_, ok := c.CachedTool("goes")
	assert.True(t, ok)
}

func TestClient_CachedTools_InsertionOrder(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "alpha", "first alphabetically", echo)
	fabric.register(t, "agent-b", "zeta", "last alphabetically", echo)

	c := client.New("caller", fabric.transport)

	// Discover zeta first; it keeps its slot when alpha arrives later.
	_, err := c.DiscoverTools(context.Background(), "", "zeta")
	require.NoError(t, err)
	_, err = c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	cached := c.CachedTools()
	require.Len(t, cached, 2)
	assert.Equal(t, "zeta", cached[0].Name)
	assert.Equal(t, "alpha", cached[1].Name)
}

func TestClient_CachedTool_ReturnsCopy(t *testing.T) {
	fabric := newTestFabric(t)
	fabric.register(t, "agent-a", "echo", "Echo the text parameter", echo)

	c := client.New("caller", fabric.transport)
	_, err := c.DiscoverTools(context.Background(), "", "")
	require.NoError(t, err)

	first, ok := c.CachedTool("echo")
	require.True(t, ok)
	first.Description = "mutated"

	second, ok := c.CachedTool("echo")
	require.True(t, ok)
	assert.Equal(t, "Echo the text parameter", second.Description)
}

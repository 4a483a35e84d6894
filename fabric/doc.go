// Package fabric assembles an in-process tool-calling plane for agents.
//
// A Fabric owns one registry, one monitor and one transport, wired
// together at construction. Agents join it through NewServer (to
// publish tools) and NewClient (to discover and call them); nothing is
// shared through globals, so independent fabrics coexist in one
// process and tests run isolated instances in parallel.
//
// # Assembly
//
//	f := fabric.New(ctx, fabric.DefaultConfig())
//	defer f.Shutdown(5 * time.Second)
//
//	srv, err := f.NewServer("calculator")
//	if err != nil { ... }
//	err = srv.RegisterTool(&protocol.ToolDescriptor{
//	    Name:        "add",
//	    Description: "Add two numbers",
//	    Parameters: protocol.ParameterSchema{
//	        "a": {Type: "number", Required: true},
//	        "b": {Type: "number", Required: true},
//	    },
//	}, addHandler)
//
//	c := f.NewClient("planner")
//	result, err := c.CallTool(ctx, "add", map[string]any{"a": 1, "b": 2})
//
// # Routing
//
// The fabric installs three transport handlers: tool calls route to the
// server owning the envelope's receiver name, discovery requests are
// answered from the shared registry, and error envelopes are logged.
// Tool results are correlated by the transport itself.
//
// # Observability
//
// The monitor records every call, routing outcome and discovery request
// off the hot path; Stats flushes its queue and returns one snapshot.
// An Observer (see the observability package) additionally receives
// lifecycle, discovery and per-call events as they happen.
//
// # Configuration
//
// Config merges over defaults and can be loaded from JSON or YAML with
// LoadConfig; durations appear in files as strings like "30s". The
// observer field selects a named observer ("noop", "slog", "otel")
// unless WithObserver installs one directly.
package fabric

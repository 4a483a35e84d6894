package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agent-fabric/fabric/core/protocol"
)

// Handler is the function signature for tool implementations. Handlers
// receive the request context and the decoded call parameters, and return
// an arbitrary JSON-encodable result.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Registration pairs a tool descriptor with its handler for batch
// registration.
type Registration struct {
	Descriptor *protocol.ToolDescriptor
	Handler    Handler
}

// DiscoveryRecorder receives a notification for every discovery query
// served by the registry. Implementations must not block.
type DiscoveryRecorder interface {
	RecordDiscoveryRequest(requester string)
}

type entry struct {
	descriptor *protocol.ToolDescriptor
	handler    Handler
}

// Registry is the single source of truth for which tools exist on the
// fabric and which agent serves each one. Tool names are unique across
// the whole registry regardless of owning agent.
//
// Thread-safe for concurrent registration, lookup, and discovery. The
// zero value is not usable; construct with NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]entry
	recorder DiscoveryRecorder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// SetDiscoveryRecorder wires a recorder that is notified on every
// Discover call. A nil recorder disables notification.
func (r *Registry) SetDiscoveryRecorder(recorder DiscoveryRecorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = recorder
}

// Register adds a new tool. Returns ErrAlreadyExists if a tool with the
// same name is already registered, leaving the existing registration in
// place; registration never silently overwrites. Use Replace to update an
// existing tool's handler.
func (r *Registry) Register(descriptor *protocol.ToolDescriptor, handler Handler) error {
	if descriptor == nil || descriptor.Name == "" {
		return ErrEmptyName
	}
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, descriptor.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[descriptor.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, descriptor.Name)
	}

	r.entries[descriptor.Name] = entry{descriptor: descriptor.Clone(), handler: handler}
	return nil
}

// Replace updates an existing tool's descriptor and handler. Returns
// ErrNotFound if no tool with the given name is registered.
func (r *Registry) Replace(descriptor *protocol.ToolDescriptor, handler Handler) error {
	if descriptor == nil || descriptor.Name == "" {
		return ErrEmptyName
	}
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, descriptor.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[descriptor.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, descriptor.Name)
	}

	r.entries[descriptor.Name] = entry{descriptor: descriptor.Clone(), handler: handler}
	return nil
}

// Unregister removes a tool by name. Returns ErrNotFound if the tool is
// not registered; unregistering twice reports the second call, it never
// panics.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.entries, name)
	return nil
}

// Get retrieves a tool's descriptor by name. The returned descriptor is a
// copy; mutating it does not affect the registry.
func (r *Registry) Get(name string) (*protocol.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.descriptor.Clone(), true
}

// Handler retrieves a tool's handler by name.
func (r *Registry) Handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.handler, true
}

// List returns descriptor copies for every registered tool that passes
// the filters, sorted by tool name. An empty agentFilter matches every
// agent; an empty nameFilter matches every name; a non-empty nameFilter
// is a case-insensitive substring match.
func (r *Registry) List(agentFilter, nameFilter string) []*protocol.ToolDescriptor {
	request := protocol.DiscoveryRequest{
		AgentFilter: agentFilter,
		ToolFilter:  nameFilter,
	}
	return r.matching(&request)
}

// Discover serves a discovery query: filters the registered descriptors
// by the request's agent, tool-name, and category filters and reports the
// query to the discovery recorder when one is wired.
func (r *Registry) Discover(req *protocol.DiscoveryRequest) *protocol.DiscoveryResponse {
	if req == nil {
		req = &protocol.DiscoveryRequest{}
	}

	tools := r.matching(req)

	r.mu.RLock()
	recorder := r.recorder
	r.mu.RUnlock()
	if recorder != nil {
		recorder.RecordDiscoveryRequest(req.Requester)
	}

	return protocol.NewDiscoveryResponse(tools)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) matching(req *protocol.DiscoveryRequest) []*protocol.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]*protocol.ToolDescriptor, 0, len(names))
	for _, name := range names {
		e := r.entries[name]
		if req.Matches(e.descriptor) {
			tools = append(tools, e.descriptor.Clone())
		}
	}
	return tools
}

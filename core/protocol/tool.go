package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// ParameterSpec describes a single tool parameter.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// ParameterSchema maps parameter names to their specs.
type ParameterSchema map[string]ParameterSpec

// RequiredParameters returns the names of all required parameters, sorted.
func (ps ParameterSchema) RequiredParameters() []string {
	var required []string
	for name, spec := range ps {
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}

// ToolDescriptor advertises a callable tool: its name, what it does, the
// parameters it accepts, and which agent serves it. Metadata carries
// free-form tags such as "category".
type ToolDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  ParameterSchema   `json:"parameters,omitempty"`
	AgentName   string            `json:"agent_name"`
	Version     string            `json:"version,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ValidateParameters checks params against the descriptor's schema. It
// returns a *ValidationError naming every missing required parameter, or
// nil when the call is well-formed. Unknown parameters are accepted.
func (td *ToolDescriptor) ValidateParameters(params map[string]any) error {
	var missing []string
	for name, spec := range td.Parameters {
		if !spec.Required {
			continue
		}
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{Tool: td.Name, Missing: missing}
}

// MatchesCapability reports whether keyword occurs in the descriptor's
// name or description, case-insensitively.
func (td *ToolDescriptor) MatchesCapability(keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(td.Name), k) ||
		strings.Contains(strings.ToLower(td.Description), k)
}

// Category returns the descriptor's category tag, or "" when untagged.
func (td *ToolDescriptor) Category() string {
	return td.Metadata["category"]
}

// Clone returns a deep copy of the descriptor so callers can hold it
// without aliasing registry state.
func (td *ToolDescriptor) Clone() *ToolDescriptor {
	clone := *td
	if td.Parameters != nil {
		clone.Parameters = make(ParameterSchema, len(td.Parameters))
		for name, spec := range td.Parameters {
			clone.Parameters[name] = spec
		}
	}
	if td.Metadata != nil {
		clone.Metadata = make(map[string]string, len(td.Metadata))
		for k, v := range td.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// ValidationError reports a tool call whose parameters failed schema
// validation. Missing lists the absent required parameters in sorted
// order.
type ValidationError struct {
	Tool    string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %q: missing required parameters: %s",
		e.Tool, strings.Join(e.Missing, ", "))
}

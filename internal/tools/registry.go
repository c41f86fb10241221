// Package tools exposes the API index and the validators as named tools
// with JSON inputs and outputs, the surface served to assistant clients over
// RPC and to HTTP callers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
)

// ToolSpec documents a tool's contract. InputSchema is a JSON Schema
// document.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Tool is an in-process tool.
type Tool interface {
	Spec() ToolSpec
	Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Registry holds tool registrations and dispatches calls.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics *metrics.Metrics
}

// NewRegistry creates a registry holding tools. m may be nil.
func NewRegistry(m *metrics.Metrics, tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool), metrics: m}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	if t == nil {
		return
	}
	spec := t.Spec()
	if spec.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = t
}

// Call invokes a registered tool. An unknown name yields ErrUnknownTool.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, apperrors.ErrUnknownTool)
	}
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	out, err := t.Call(ctx, input)
	if r.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()
	}
	return out, err
}

// Specs returns the registered tool specs sorted by name.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Spec())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// decode unmarshals a tool input, reporting malformed JSON as invalid input.
func decode(tool string, input json.RawMessage, v any) error {
	if err := json.Unmarshal(input, v); err != nil {
		return apperrors.InvalidInputf("%s: malformed arguments: %v", tool, err)
	}
	return nil
}

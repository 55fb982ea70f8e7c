package gateway

import (
	"context"
	"fmt"
)

// HandlerFunc executes one tool. A returned error becomes a failure envelope.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

type registration struct {
	tool    Tool
	handler HandlerFunc
}

// Registry is a closed dispatch table of tools. Registration happens at
// startup; Call never reaches outside the table.
type Registry struct {
	order []string
	tools map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool to the catalog. Registering the same name twice
// replaces the handler but keeps the original catalog position.
func (r *Registry) Register(tool Tool, handler HandlerFunc) {
	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = registration{tool: tool, handler: handler}
}

// Tools returns the catalog in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].tool)
	}
	return out
}

// Call dispatches a tool by name. Every outcome is an envelope: unknown
// names, missing required arguments, handler errors, and handler panics all
// come back as Success false rather than as Go errors.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (resp ToolResponse) {
	reg, ok := r.tools[name]
	if !ok {
		return ToolResponse{Success: false, Error: fmt.Sprintf("Unknown tool: %s", name)}
	}

	for _, required := range reg.tool.InputSchema.Required {
		if _, present := args[required]; !present {
			return ToolResponse{Success: false, Error: fmt.Sprintf("missing required argument: %s", required)}
		}
	}

	defer func() {
		if p := recover(); p != nil {
			resp = ToolResponse{Success: false, Error: fmt.Sprintf("tool %s panicked: %v", name, p)}
		}
	}()

	data, err := reg.handler(ctx, args)
	if err != nil {
		return ToolResponse{Success: false, Error: err.Error()}
	}
	return ToolResponse{Success: true, Data: data}
}

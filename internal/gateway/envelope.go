// Package gateway implements the uniform tool-call envelope shared by every
// collaborator service: a closed catalog of named tools, invoked over a
// single POST /call_tool endpoint, answering with a success/data/error
// envelope regardless of outcome.
package gateway

// ToolRequest is the wire form of a tool invocation.
type ToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResponse is the uniform result envelope. Tool failures are carried
// inside the envelope with Success false, not as transport errors.
type ToolResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Property describes one argument in a tool's input schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is the JSON-schema shaped description of a tool's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Tool is a catalog entry: the name clients dispatch on, plus enough
// description for a model or an operator to use it.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

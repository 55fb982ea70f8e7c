package gateway

import "context"

// Invoker calls tools on a collaborator. Implementations are the HTTP Client
// for remote collaborators and Local for registries hosted in-process.
type Invoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Local invokes a registry directly, translating failure envelopes into
// CollaboratorError the same way the HTTP client does.
type Local struct {
	collaborator string
	registry     *Registry
}

// NewLocal wraps an in-process registry as an Invoker.
func NewLocal(collaborator string, registry *Registry) *Local {
	return &Local{collaborator: collaborator, registry: registry}
}

func (l *Local) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	resp := l.registry.Call(ctx, name, args)
	if !resp.Success {
		return nil, &CollaboratorError{Collaborator: l.collaborator, Tool: name, Msg: resp.Error}
	}
	return resp.Data, nil
}

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrToolNotFound indicates a tool request named a tool that was never
// registered. The generation layer converts it into a tool-result string.
var ErrToolNotFound = errors.New("tool not found")

// Registry dispatches tool requests by name against the Genkit tool
// registry. It is stateless and safe for concurrent use.
type Registry struct {
	g     *genkit.Genkit
	names []string
}

// NewRegistry creates a registry over the given tool names. The tools must
// already be defined with Genkit (see Register).
func NewRegistry(g *genkit.Genkit, names ...string) *Registry {
	return &Registry{g: g, names: names}
}

// Refs returns references for all registered tools, for passing to a
// generate call.
func (r *Registry) Refs() []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(r.names))
	for _, name := range r.names {
		if tool := genkit.LookupTool(r.g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Execute runs the named tool with the given raw input and returns its
// output as text. Returns a wrapped ErrToolNotFound for unknown names.
func (r *Registry) Execute(ctx context.Context, name string, input any) (string, error) {
	tool := genkit.LookupTool(r.g, name)
	if tool == nil {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	out, err := tool.RunRaw(ctx, input)
	if err != nil {
		return "", fmt.Errorf("running tool %q: %w", name, err)
	}

	switch v := out.(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

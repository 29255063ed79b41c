package tool

import (
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when a tool name is not in the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Registry is the static tool catalogue. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	entries []Entry
	byName  map[string]Entry
}

// NewRegistry builds a registry from entries, in catalogue order.
// It fails on empty or duplicate names, missing handlers and inconsistent schemas.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		name := e.Definition.Name
		if name == "" {
			return nil, errors.New("tool registry: empty tool name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("tool registry: duplicate tool %q", name)
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("tool registry: tool %q has no handler", name)
		}
		if err := e.Definition.InputSchema.check(); err != nil {
			return nil, fmt.Errorf("tool registry: tool %q: %w", name, err)
		}
		r.entries = append(r.entries, e)
		r.byName[name] = e
	}
	return r, nil
}

// Resolve returns the entry registered under name.
func (r *Registry) Resolve(name string) (Entry, error) {
	e, ok := r.byName[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e, nil
}

// Definitions returns the catalogue in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, len(r.entries))
	for i, e := range r.entries {
		defs[i] = e.Definition
	}
	return defs
}

// Names returns the registered tool names in catalogue order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Definition.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.entries)
}

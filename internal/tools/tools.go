// Package tools defines the pluggable capability modules agents invoke by
// name, and the registry that holds them.
package tools

import (
	"context"
	"sync"
)

// Context carries the parameters of one tool invocation. It is passed by
// value and holds no mutable shared state.
type Context struct {
	Params       map[string]any
	ProviderName string
	Model        string
}

// Result is owned by the caller after a tool returns; tools never retain it.
type Result struct {
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data"`
	Confidence float64        `json:"confidence"`
	Logs       []string       `json:"logs"`
	Error      string         `json:"error,omitempty"`
}

// Tool is the single capability all registered tools implement.
type Tool interface {
	Name() string
	Execute(ctx context.Context, tc Context) Result
}

// Registry maps tool names to implementations. It is populated once during
// start-up by explicit Register calls and read-mostly afterwards; lookups
// are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its own name, replacing any previous entry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Execute looks up a tool by name and runs it. An unknown name yields a
// failed Result rather than an error.
func (r *Registry) Execute(ctx context.Context, name string, tc Context) Result {
	tool := r.Get(name)
	if tool == nil {
		return Result{
			Success: false,
			Error:   "Tool not found: " + name,
		}
	}
	return tool.Execute(ctx, tc)
}

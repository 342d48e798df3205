// Package bulk executes bulk actions declared by table definitions against
// the row store: capability checks, idempotent replays, tracing and
// observer notification around a named handler.
package bulk

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pitabwire/tabula/model"
)

// Request is one bulk action invocation.
type Request struct {
	TableID    string
	Collection string
	ActionID   string
	IDs        []string
	Set        map[string]any
}

// Handler performs a bulk action.
type Handler interface {
	Name() string
	Execute(ctx context.Context, rctx *model.RequestContext, req Request) (model.BulkResult, error)
}

// HandlerRegistry stores handlers by name.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register adds h under its name. It panics when the name is taken.
func (r *HandlerRegistry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Name()]; exists {
		panic(fmt.Sprintf("bulk: handler %q already registered", h.Name()))
	}
	r.handlers[h.Name()] = h
}

// Get returns the handler registered under name.
func (r *HandlerRegistry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

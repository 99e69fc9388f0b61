package bridge

import (
	"sort"
	"sync"
)

// Registry maps command names to handlers. Registering a name that is
// already present replaces the previous handler.
type Registry struct {
	handlers map[CommandName]Handler
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[CommandName]Handler)}
}

func (r *Registry) Register(name CommandName, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Unregister(name CommandName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

func (r *Registry) Lookup(name CommandName) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok && h != nil
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []CommandName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]CommandName, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

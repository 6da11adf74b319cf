package matchedcols

import (
	"sort"
	"sync"
)

// Registry maps auxiliary function names to implementations for a single
// connection. Engine adapters create one registry per searcher; there is no
// process-wide registry.
type Registry struct {
	mu    sync.Mutex
	funcs map[string]AuxFunc
}

func NewRegistry() *Registry {
	return &Registry{funcs: map[string]AuxFunc{}}
}

// Register binds fn under name. Registering an empty name, a nil function or
// a name that is already bound is a registration error.
func (r *Registry) Register(name string, fn AuxFunc) error {
	if name == "" {
		return New(ErrRegistration, "empty function name")
	}
	if fn == nil {
		return &Error{Kind: ErrRegistration, Message: "nil function", Name: name}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return &Error{Kind: ErrRegistration, Message: "function already registered", Name: name}
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the function bound under name.
func (r *Registry) Lookup(name string) (AuxFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, &Error{Kind: ErrRegistration, Message: "function not registered", Name: name}
	}
	return fn, nil
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

package job

import (
	"fmt"
	"sort"
	"sync"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
)

// Registry binds exactly one Processor to each job type.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	processors map[Type]Processor
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[Type]Processor),
	}
}

// Bind associates p with t. Binding an unknown type or binding the same
// type twice is a configuration error.
func (r *Registry) Bind(t Type, p Processor) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", jobs.ErrUnknownJobType, t)
	}
	if p == nil {
		return fmt.Errorf("jobs: nil processor for %q", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processors[t]; ok {
		return fmt.Errorf("%w: %q", jobs.ErrDuplicateProcessor, t)
	}
	r.processors[t] = p
	return nil
}

// Get returns the processor bound to t.
func (r *Registry) Get(t Type) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[t]
	return p, ok
}

// Types returns the bound job types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, k int) bool { return types[i] < types[k] })
	return types
}

package vcore

import (
	"fmt"
	"sort"
	"sync"
)

// Filter is a text-formatting function registered as an asset. Expression
// computed properties call filters by name.
type Filter func(args ...any) (any, error)

// FunctionRegistry stores the filters visible to an evaluator.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Filter
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Filter),
	}
}

// NewFunctionRegistryFromFilters builds a registry holding every entry of
// filters. Nil entries are skipped.
func NewFunctionRegistryFromFilters(filters map[string]Filter) (*FunctionRegistry, error) {
	registry := NewFunctionRegistry()
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := filters[name]
		if fn == nil {
			continue
		}
		if err := registry.Register(name, fn); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Filter) error {
	if fn == nil {
		return fmt.Errorf("vcore: filter %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("vcore: filter name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Filter)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("vcore: filter %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Filter, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the filter registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("vcore: filter registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("vcore: filter %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered filter names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered filters.
func (r *FunctionRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

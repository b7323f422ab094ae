package vcore

import (
	"strings"
	"sync"
)

// ProgramCache stores compiled expression programs. Evaluators derive keys
// from the expression and the filter names in scope, so one cache can be
// shared by every constructor and instance of a root.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMemoryProgramCache returns an unbounded in-memory cache.
func NewMemoryProgramCache() ProgramCache {
	return &memoryProgramCache{programs: map[string]any{}}
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}

// programKey derives a cache key from the filter names visible to the
// program, never from a registry instance. Cached programs resolve filters
// through the evaluator that runs them.
func programKey(engine string, filters []string, expression string, vars ...string) string {
	var b strings.Builder
	b.WriteString(engine)
	b.WriteByte('|')
	b.WriteString(strings.Join(filters, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(vars, ","))
	b.WriteByte('|')
	b.WriteString(expression)
	return b.String()
}

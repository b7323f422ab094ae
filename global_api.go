package vcore

import (
	"fmt"

	"github.com/goliatone/go-vcore/reactive"
	"github.com/goliatone/go-vcore/scheduler"
)

// Util exposes internal helpers to plugins. They are not part of the stable
// API.
type Util struct {
	Warn           func(msg string, vm *Instance)
	Extend         func(to, from map[string]any) map[string]any
	MergeOptions   func(parent, child *Options, vm *Instance) (*Options, error)
	DefineReactive func(obj *reactive.Object, key string, value any)
}

// Util returns the helper bindings of the root.
func (c *Constructor) Util() Util {
	g := c.global
	return Util{
		Warn: g.warn,
		Extend: func(to, from map[string]any) map[string]any {
			return extendMap(to, from)
		},
		MergeOptions: func(parent, child *Options, vm *Instance) (*Options, error) {
			return mergeOptions(g, parent, child, vm)
		},
		DefineReactive: reactive.DefineReactive,
	}
}

// Set writes key on an observed object, defining it when missing. Adding a
// key to the root data of an instance is refused with a warning.
func (c *Constructor) Set(target *reactive.Object, key string, value any) (any, error) {
	g := c.global
	if target == nil {
		g.warnf(nil, "Cannot set reactive property on undefined, null, or primitive value: %q", key)
		return nil, fmt.Errorf("%w: set %q", ErrNotObserved, key)
	}
	if target.Has(key) {
		target.Set(key, value)
		return value, nil
	}
	if target.IsRoot() {
		g.warn("Avoid adding reactive properties to a component instance or its root data at runtime - declare it upfront in the data option.", nil)
		return value, nil
	}
	reactive.DefineReactive(target, key, value)
	return value, nil
}

// Delete removes key from an observed object. Deleting from the root data of
// an instance is refused with a warning.
func (c *Constructor) Delete(target *reactive.Object, key string) error {
	g := c.global
	if target == nil {
		g.warnf(nil, "Cannot delete reactive property on undefined, null, or primitive value: %q", key)
		return fmt.Errorf("%w: delete %q", ErrNotObserved, key)
	}
	if target.IsRoot() {
		g.warn("Avoid deleting properties on a component instance or its root data - just set it to nil.", nil)
		return nil
	}
	target.Delete(key)
	return nil
}

// NextTick defers fn to the next scheduler flush. The channel is closed
// once it ran.
func (c *Constructor) NextTick(fn func()) <-chan struct{} {
	return c.global.scheduler.NextTick(fn)
}

// Flush drains the scheduler: next-tick callbacks and queued watcher
// callbacks. It returns the joined watcher errors.
func (c *Constructor) Flush() error {
	return c.global.scheduler.Flush()
}

// Scheduler returns the queue shared by the root.
func (c *Constructor) Scheduler() *scheduler.Queue {
	return c.global.scheduler
}

// NextTick defers fn to the next scheduler flush of the instance root.
func (vm *Instance) NextTick(fn func()) <-chan struct{} {
	return vm.global.scheduler.NextTick(fn)
}

package vcore

import (
	"errors"
	"strings"
)

type listener struct {
	id   uint64
	fn   Listener
	once bool
}

// initEvents registers the listeners the parent attached to the component
// node.
func (vm *Instance) initEvents() {
	vm.events = map[string][]*listener{}
	vm.hasHookEvent = false
	for _, name := range sortedKeys(vm.options.parentListeners) {
		for _, fn := range vm.options.parentListeners[name] {
			vm.On(name, fn)
		}
	}
}

// On registers fn for event. The returned function removes it.
func (vm *Instance) On(event string, fn Listener) func() {
	return vm.on(event, fn, false)
}

// Once registers fn for the next emission of event only.
func (vm *Instance) Once(event string, fn Listener) func() {
	return vm.on(event, fn, true)
}

func (vm *Instance) on(event string, fn Listener, once bool) func() {
	if fn == nil {
		return func() {}
	}
	vm.nextListener++
	entry := &listener{id: vm.nextListener, fn: fn, once: once}
	vm.events[event] = append(vm.events[event], entry)
	if strings.HasPrefix(event, "hook:") {
		vm.hasHookEvent = true
	}
	return func() {
		vm.removeListener(event, entry.id)
	}
}

func (vm *Instance) removeListener(event string, id uint64) {
	list := vm.events[event]
	for i, entry := range list {
		if entry.id == id {
			next := append(list[:i:i], list[i+1:]...)
			if len(next) == 0 {
				delete(vm.events, event)
			} else {
				vm.events[event] = next
			}
			return
		}
	}
}

// Off removes every listener of the named events, or of all events when none
// are given.
func (vm *Instance) Off(events ...string) {
	if len(events) == 0 {
		vm.events = map[string][]*listener{}
		return
	}
	for _, event := range events {
		delete(vm.events, event)
	}
}

// Emit calls the listeners of event in registration order and joins their
// errors.
func (vm *Instance) Emit(event string, args ...any) error {
	if g := vm.global; !g.config.Production {
		lower := strings.ToLower(event)
		if lower != event && len(vm.events[lower]) > 0 {
			g.warnf(vm, "Event %q is emitted in component %s but the handler is registered for %q. Note that event names are case sensitive; consider using %q instead of %q.",
				lower, formatComponentName(vm), event, hyphenate(event), event)
		}
	}
	list := vm.events[event]
	if len(list) == 0 {
		return nil
	}
	list = append([]*listener(nil), list...)
	var errs []error
	for _, entry := range list {
		if entry.once {
			vm.removeListener(event, entry.id)
		}
		if err := entry.fn(args...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListenerCount returns how many listeners are registered for event.
func (vm *Instance) ListenerCount(event string) int {
	return len(vm.events[event])
}

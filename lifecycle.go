package vcore

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-vcore/pkg/activity"
)

// Mounter is the render collaborator. It receives the instance once
// beforeMount hooks ran and is expected to render and attach it to target.
type Mounter interface {
	Mount(vm *Instance, target string) error
}

// MounterFunc allows plain functions to satisfy Mounter.
type MounterFunc func(vm *Instance, target string) error

// Mount dispatches to the underlying function.
func (fn MounterFunc) Mount(vm *Instance, target string) error {
	if fn == nil {
		return nil
	}
	return fn(vm, target)
}

// initLifecycle links the instance into the tree. Abstract parents are
// skipped so they never appear in the children of their own parent.
func (vm *Instance) initLifecycle() {
	parent := vm.options.Parent
	if parent != nil && !vm.options.Abstract {
		for parent.options.Abstract && parent.parent != nil {
			parent = parent.parent
		}
		parent.children = append(parent.children, vm)
	}

	vm.parent = parent
	vm.root = vm
	if parent != nil {
		vm.root = parent.root
	}
	vm.children = nil
	vm.refs = map[string]*Instance{}
	vm.isMounted = false
	vm.isDestroyed = false
	vm.isBeingDestroyed = false
}

// callHook runs the hook list registered under name in order, stopping at
// the first failure. Listeners of "hook:<name>" fire afterwards.
func (vm *Instance) callHook(name LifecycleHook) error {
	for _, hook := range vm.options.Hook(name) {
		if err := hook.call(vm); err != nil {
			return &HookError{Hook: name, Component: formatComponentName(vm), Err: err}
		}
	}
	if vm.hasHookEvent {
		if err := vm.Emit("hook:" + string(name)); err != nil {
			return &HookError{Hook: name, Component: formatComponentName(vm), Err: err}
		}
	}
	return nil
}

// Mount runs beforeMount, hands the instance to the configured Mounter, or
// renders it when there is none, then runs mounted.
func (vm *Instance) Mount(target string) error {
	if vm.isDestroyed || vm.isBeingDestroyed {
		return ErrDestroyed
	}
	g := vm.global
	vm.el = target
	if vm.options.Render == nil && g.mounter == nil {
		g.warnf(vm, "Failed to mount component: template or render function not defined.")
	}
	if err := vm.callHook(BeforeMount); err != nil {
		return err
	}
	if g.mounter != nil {
		if err := g.mounter.Mount(vm, target); err != nil {
			return fmt.Errorf("vcore: mount %s: %w", formatComponentName(vm), err)
		}
	} else if _, err := vm.Render(); err != nil {
		return err
	}
	vm.isMounted = true
	if err := vm.callHook(Mounted); err != nil {
		return err
	}

	g.emit(activity.BuildComponentEvent(activity.VerbComponentMounted, vm.eventInput()))
	return nil
}

// ForceUpdate re-renders a mounted instance between the beforeUpdate and
// updated hooks.
func (vm *Instance) ForceUpdate() error {
	if !vm.isMounted || vm.isDestroyed {
		return nil
	}
	if err := vm.callHook(BeforeUpdate); err != nil {
		return err
	}
	if _, err := vm.Render(); err != nil {
		return err
	}
	return vm.callHook(Updated)
}

// Destroy tears the instance down: beforeDestroy, unlink from the parent,
// destroy children, stop watchers, destroyed, then drop every listener.
// Calling it again is a no-op. Hook errors do not stop the teardown; they
// are joined into the result.
func (vm *Instance) Destroy() error {
	if vm.isBeingDestroyed {
		return nil
	}
	var errs []error
	if err := vm.callHook(BeforeDestroy); err != nil {
		errs = append(errs, err)
	}
	vm.isBeingDestroyed = true

	if parent := vm.parent; parent != nil && !parent.isBeingDestroyed && !vm.options.Abstract {
		parent.removeChild(vm)
	}
	for _, child := range append([]*Instance(nil), vm.children...) {
		if err := child.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	vm.children = nil
	for _, w := range vm.watchers {
		w.stop()
	}
	vm.watchers = nil
	for _, fn := range vm.teardown {
		fn()
	}
	vm.teardown = nil
	if vm.data != nil {
		vm.data.DetachRoot()
	}

	vm.isDestroyed = true
	if err := vm.callHook(Destroyed); err != nil {
		errs = append(errs, err)
	}
	vm.Off()
	vm.global.emit(activity.BuildComponentEvent(activity.VerbComponentDestroyed, vm.eventInput()))
	return errors.Join(errs...)
}

func (vm *Instance) removeChild(child *Instance) {
	for i, candidate := range vm.children {
		if candidate == child {
			vm.children = append(vm.children[:i:i], vm.children[i+1:]...)
			break
		}
	}
	for ref, candidate := range vm.refs {
		if candidate == child {
			delete(vm.refs, ref)
		}
	}
}

func (vm *Instance) eventInput() activity.ComponentEventInput {
	name := vm.options.Name
	if name == "" {
		name = vm.options.componentTag
	}
	var cid uint64
	if vm.ctor != nil {
		cid = vm.ctor.cid
	}
	return activity.ComponentEventInput{
		Component: name,
		CID:       cid,
		UID:       vm.uid,
		SessionID: vm.global.sessionID,
	}
}

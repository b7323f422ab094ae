package vcore

import (
	"fmt"
	"sync/atomic"

	"github.com/goliatone/go-vcore/pkg/activity"
)

var instanceUID atomic.Uint64

// New creates and initializes an instance of c. options are merged over the
// resolved constructor options; a nil bag is valid. On error the partially
// initialized instance is discarded.
func (c *Constructor) New(options *Options) (*Instance, error) {
	vm := &Instance{
		uid:    instanceUID.Add(1),
		global: c.global,
		ctor:   c,
	}
	if err := vm.init(options); err != nil {
		return nil, err
	}
	return vm, nil
}

func (vm *Instance) init(options *Options) error {
	c := vm.ctor
	resolved, err := c.ResolveOptions()
	if err != nil {
		return err
	}
	if options != nil && options.isComponent {
		vm.options = initInternalComponent(resolved, options)
	} else {
		merged, err := mergeOptions(vm.global, resolved, options, vm)
		if err != nil {
			return fmt.Errorf("vcore: init cid=%d: %w", c.cid, err)
		}
		vm.options = merged
	}

	vm.self = vm
	vm.initLifecycle()
	vm.initEvents()
	vm.initRender()
	if err := vm.callHook(BeforeCreate); err != nil {
		return err
	}
	vm.initInjections()
	if err := vm.initState(); err != nil {
		return err
	}
	if err := vm.initProvide(); err != nil {
		return err
	}
	if err := vm.callHook(Created); err != nil {
		return err
	}
	vm.global.emit(activity.BuildComponentEvent(activity.VerbComponentCreated, vm.eventInput()))

	if vm.options.El != "" {
		return vm.Mount(vm.options.El)
	}
	return nil
}

// initInternalComponent copies the instantiation fields of a child component
// onto a copy of the resolved constructor options, skipping the general
// merge: internally created instances never carry mixins.
func initInternalComponent(resolved, options *Options) *Options {
	out := resolved.clone()
	out.isComponent = true
	out.Parent = options.Parent
	out.parentVnode = options.parentVnode
	out.PropsData = options.PropsData
	out.parentListeners = options.parentListeners
	out.renderChildren = options.renderChildren
	out.componentTag = options.componentTag
	if options.Render != nil {
		out.Render = options.Render
		out.StaticRenderFns = options.StaticRenderFns
	}
	return out
}

// CreateComponentInstance instantiates the component described by a
// placeholder node built with CreateComponent, as a child of parent.
func CreateComponentInstance(vnode *VNode, parent *Instance) (*Instance, error) {
	if vnode == nil || vnode.ComponentOptions == nil || vnode.ComponentOptions.Ctor == nil {
		return nil, fmt.Errorf("%w: vnode is not a component placeholder", ErrInvalidOption)
	}
	co := vnode.ComponentOptions
	vm, err := co.Ctor.New(&Options{
		isComponent:     true,
		Parent:          parent,
		parentVnode:     vnode,
		PropsData:       co.PropsData,
		parentListeners: co.Listeners,
		renderChildren:  co.Children,
		componentTag:    co.Tag,
	})
	if err != nil {
		return nil, err
	}
	vnode.ComponentInstance = vm
	if parent != nil && vnode.Data != nil && vnode.Data.Ref != "" {
		parent.refs[vnode.Data.Ref] = vm
	}
	return vm, nil
}

package vcore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-vcore/reactive"
)

// Instance is one live component. Instances are created by Constructor.New
// or, for child components, by CreateComponentInstance. Like constructors
// they are NOT safe for concurrent use.
type Instance struct {
	uid    uint64
	global *globalState
	ctor   *Constructor

	options *Options
	self    *Instance

	parent   *Instance
	root     *Instance
	children []*Instance
	refs     map[string]*Instance

	isMounted        bool
	isDestroyed      bool
	isBeingDestroyed bool
	el               string

	events       map[string][]*listener
	nextListener uint64
	hasHookEvent bool

	vnode     *VNode
	slots     map[string][]*VNode
	attrs     map[string]any
	listeners map[string][]Listener

	props    *reactive.Object
	data     *reactive.Object
	computed map[string]*computedState
	injected map[string]any
	provided map[string]any

	watchers []*watcher
	teardown []func()

	eval *ctorEvaluator
}

// UID returns the process-wide instance id.
func (vm *Instance) UID() uint64 {
	return vm.uid
}

// Options returns the effective options of the instance.
func (vm *Instance) Options() *Options {
	return vm.options
}

// Self returns the instance itself. Helpers holding a wrapped instance use it
// to reach the real one.
func (vm *Instance) Self() *Instance {
	return vm.self
}

// Constructor returns the constructor the instance was created from.
func (vm *Instance) Constructor() *Constructor {
	return vm.ctor
}

// Parent returns the closest non-abstract parent instance.
func (vm *Instance) Parent() *Instance {
	return vm.parent
}

// Root returns the root of the instance tree.
func (vm *Instance) Root() *Instance {
	return vm.root
}

// Children returns a copy of the direct child instances.
func (vm *Instance) Children() []*Instance {
	return append([]*Instance(nil), vm.children...)
}

// Refs returns a copy of the child instances registered by ref.
func (vm *Instance) Refs() map[string]*Instance {
	out := make(map[string]*Instance, len(vm.refs))
	for key, value := range vm.refs {
		out[key] = value
	}
	return out
}

// IsMounted reports whether Mount completed.
func (vm *Instance) IsMounted() bool {
	return vm.isMounted
}

// IsDestroyed reports whether Destroy completed.
func (vm *Instance) IsDestroyed() bool {
	return vm.isDestroyed
}

// El returns the mount target.
func (vm *Instance) El() string {
	return vm.el
}

// VNode returns the tree produced by the last render.
func (vm *Instance) VNode() *VNode {
	return vm.vnode
}

// Data returns the observed root data object.
func (vm *Instance) Data() *reactive.Object {
	return vm.data
}

// Props returns the observed props object.
func (vm *Instance) Props() *reactive.Object {
	return vm.props
}

// Slots returns the resolved slot content keyed by slot name.
func (vm *Instance) Slots() map[string][]*VNode {
	return vm.slots
}

// Attrs returns the parent attributes not recognized as props.
func (vm *Instance) Attrs() map[string]any {
	return vm.attrs
}

// Listeners returns the listeners the parent attached to the component node.
func (vm *Instance) Listeners() map[string][]Listener {
	return vm.listeners
}

// Injected returns the values resolved from ancestor providers.
func (vm *Instance) Injected() map[string]any {
	return vm.injected
}

// Provided returns the values the instance provides to its descendants.
func (vm *Instance) Provided() map[string]any {
	return vm.provided
}

// Get looks key up in props, data, computed properties then injections.
// Dotted keys walk nested maps.
func (vm *Instance) Get(key string) (any, error) {
	head, rest := splitPath(key)
	value, err := vm.get(head)
	if err != nil {
		return nil, err
	}
	if rest == "" {
		return value, nil
	}
	nested, ok := walkPath(value, rest)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, key)
	}
	return nested, nil
}

func (vm *Instance) get(key string) (any, error) {
	if value, ok := vm.props.Get(key); ok {
		return value, nil
	}
	if !isReserved(key) {
		if value, ok := vm.data.Get(key); ok {
			return value, nil
		}
	}
	if state, ok := vm.computed[key]; ok {
		return vm.computedValue(key, state)
	}
	if value, ok := vm.injected[key]; ok {
		return value, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, key)
}

// Set writes a prop, a data property or a computed property with a setter.
// Undeclared keys are rejected: reactive properties must be declared in the
// data option.
func (vm *Instance) Set(key string, value any) error {
	if vm.isDestroyed {
		return ErrDestroyed
	}
	if vm.props.Has(key) {
		if vm.root != vm {
			vm.global.warnf(vm, "Avoid mutating a prop directly since the value will be overwritten whenever the parent component re-renders. Instead, use a data or computed property based on the prop's value. Prop being mutated: %q", key)
		}
		vm.props.Set(key, value)
		return nil
	}
	if vm.data.Has(key) && !isReserved(key) {
		vm.data.Set(key, value)
		return nil
	}
	if state, ok := vm.computed[key]; ok {
		if state.def.Set == nil {
			vm.global.warnf(vm, "Computed property %q was assigned to but it has no setter.", key)
			return nil
		}
		return state.def.Set(vm, value)
	}
	_, err := vm.ctor.Root().Set(vm.data, key, value)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownProperty, key)
}

// Call invokes a component method.
func (vm *Instance) Call(method string, args ...any) (any, error) {
	fn, ok := vm.options.Methods[method]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: method %q", ErrUnknownProperty, method)
	}
	return fn(vm, args...)
}

// snapshot collects the values visible to expressions: props, non-reserved
// data, injections and computed properties whose value is current.
func (vm *Instance) snapshot() map[string]any {
	out := map[string]any{}
	for key, value := range vm.injected {
		out[key] = value
	}
	for key, state := range vm.computed {
		if !state.dirty && !state.evaluating {
			out[key] = state.value
		}
	}
	for _, key := range vm.data.Keys() {
		if isReserved(key) {
			continue
		}
		out[key], _ = vm.data.Get(key)
	}
	for _, key := range vm.props.Keys() {
		out[key], _ = vm.props.Get(key)
	}
	return out
}

// isReserved reports keys starting with $ or _, which are never proxied.
func isReserved(key string) bool {
	return strings.HasPrefix(key, "$") || strings.HasPrefix(key, "_")
}

func splitPath(key string) (string, string) {
	head, rest, _ := strings.Cut(key, ".")
	return head, rest
}

func walkPath(value any, path string) (any, bool) {
	for _, segment := range strings.Split(path, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

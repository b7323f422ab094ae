package vcore

import (
	"reflect"
	"sort"
	"sync/atomic"
)

// LifecycleHook names a point in an instance's life where hook lists run.
type LifecycleHook string

const (
	BeforeCreate  LifecycleHook = "beforeCreate"
	Created       LifecycleHook = "created"
	BeforeMount   LifecycleHook = "beforeMount"
	Mounted       LifecycleHook = "mounted"
	BeforeUpdate  LifecycleHook = "beforeUpdate"
	Updated       LifecycleHook = "updated"
	BeforeDestroy LifecycleHook = "beforeDestroy"
	Destroyed     LifecycleHook = "destroyed"
	Activated     LifecycleHook = "activated"
	Deactivated   LifecycleHook = "deactivated"
	ErrorCaptured LifecycleHook = "errorCaptured"
)

// LifecycleHooks lists every hook name in lifecycle order.
var LifecycleHooks = []LifecycleHook{
	BeforeCreate,
	Created,
	BeforeMount,
	Mounted,
	BeforeUpdate,
	Updated,
	BeforeDestroy,
	Destroyed,
	Activated,
	Deactivated,
	ErrorCaptured,
}

// HookFunc is a lifecycle callback. The instance is its receiver.
type HookFunc func(vm *Instance) error

// Hook wraps a HookFunc so lists can be compared by identity. Create hooks
// once and share the pointer; two hooks wrapping the same function are still
// distinct entries.
type Hook struct {
	fn HookFunc
}

// NewHook wraps fn.
func NewHook(fn HookFunc) *Hook {
	return &Hook{fn: fn}
}

func (h *Hook) call(vm *Instance) error {
	if h == nil || h.fn == nil {
		return nil
	}
	return h.fn(vm)
}

// Hooks maps lifecycle names to ordered hook lists.
type Hooks map[LifecycleHook][]*Hook

// DataFunc produces the initial data of an instance.
type DataFunc func(vm *Instance) (map[string]any, error)

// ProvideFunc produces the values an instance provides to its descendants.
type ProvideFunc func(vm *Instance) (map[string]any, error)

// Method is a component method bound to its instance at call time.
type Method func(vm *Instance, args ...any) (any, error)

// Computed declares a derived property. Either Get or Expr must be set; Expr
// is evaluated against the instance props and data with the component
// filters exposed as functions.
type Computed struct {
	Get  func(vm *Instance) (any, error)
	Set  func(vm *Instance, value any) error
	Expr string
}

// WatchHandler reacts to a change of a watched key.
type WatchHandler func(vm *Instance, value, old any) error

// Watcher binds a handler, or the name of a component method, to a key.
type Watcher struct {
	Handler   WatchHandler
	Method    string
	Immediate bool
	Sync      bool
}

// Inject declares one injected value.
type Inject struct {
	From        string
	Default     any
	DefaultFunc func(vm *Instance) any
}

func (i Inject) hasDefault() bool {
	return i.Default != nil || i.DefaultFunc != nil
}

// DirectiveHook is invoked by the render collaborator for directive bindings.
type DirectiveHook func(vnode *VNode, binding DirectiveBinding) error

// DirectiveBinding carries the evaluated directive state.
type DirectiveBinding struct {
	Name      string
	Value     any
	OldValue  any
	Arg       string
	Modifiers map[string]bool
}

// Directive groups directive hooks. Fn is shorthand for Bind and Update.
type Directive struct {
	Fn               DirectiveHook
	Bind             DirectiveHook
	Inserted         DirectiveHook
	Update           DirectiveHook
	ComponentUpdated DirectiveHook
	Unbind           DirectiveHook
}

// Component is anything usable as a component definition: a plain options
// bag or a constructor.
type Component interface {
	componentOptions() *Options
}

// Options is the declarative description of a component. Option bags are
// treated as immutable once handed to vcore: every merge returns a new bag
// and constructors replace, never edit, their options.
type Options struct {
	Name     string
	Abstract bool
	El       string
	Parent   *Instance

	Data      DataFunc
	Props     map[string]Prop
	PropsData map[string]any
	Methods   map[string]Method
	Computed  map[string]Computed
	Watch     map[string][]*Watcher

	Hooks Hooks

	Components map[string]Component
	Directives map[string]*Directive
	Filters    map[string]Filter

	Provide ProvideFunc
	Inject  map[string]Inject

	Render          RenderFunc
	StaticRenderFns []RenderFunc

	Mixins  []Component
	Extends Component

	// Extra holds keys outside the built-in set. They merge through
	// Config.OptionMergeStrategies or the default strategy.
	Extra map[string]any

	// Base is the root constructor the bag was derived from.
	Base *Constructor

	dataToken    uint64
	provideToken uint64

	isComponent     bool
	parentVnode     *VNode
	parentListeners map[string][]Listener
	renderChildren  []*VNode
	componentTag    string

	ctorCache map[*Constructor]*Constructor
}

func (o *Options) componentOptions() *Options {
	return o
}

var funcTokens atomic.Uint64

func nextFuncToken() uint64 {
	return funcTokens.Add(1)
}

// Hook returns the hook list registered under name.
func (o *Options) Hook(name LifecycleHook) []*Hook {
	if o == nil || o.Hooks == nil {
		return nil
	}
	return o.Hooks[name]
}

// clone returns a shallow copy detached from internal caches.
func (o *Options) clone() *Options {
	if o == nil {
		return &Options{}
	}
	out := *o
	out.ctorCache = nil
	return &out
}

func (o *Options) withComponent(name string, def Component) *Options {
	out := o.clone()
	out.Components = withEntry(o.Components, name, def)
	return out
}

const (
	keyName            = "name"
	keyAbstract        = "abstract"
	keyEl              = "el"
	keyParent          = "parent"
	keyData            = "data"
	keyProps           = "props"
	keyPropsData       = "propsData"
	keyMethods         = "methods"
	keyComputed        = "computed"
	keyWatch           = "watch"
	keyComponents      = "components"
	keyDirectives      = "directives"
	keyFilters         = "filters"
	keyProvide         = "provide"
	keyInject          = "inject"
	keyRender          = "render"
	keyStaticRenderFns = "staticRenderFns"
	keyMixins          = "mixins"
	keyExtends         = "extends"
	keyBase            = "_base"
)

var builtinKeys = []string{
	keyName, keyAbstract, keyEl, keyParent, keyData, keyProps, keyPropsData,
	keyMethods, keyComputed, keyWatch, keyComponents, keyDirectives, keyFilters,
	keyProvide, keyInject, keyRender, keyStaticRenderFns, keyMixins, keyExtends,
	keyBase,
}

// keys lists every declaration key the bag defines, built-ins first, then
// lifecycle hooks, then extra keys in sorted order.
func (o *Options) keys() []string {
	keys := make([]string, 0, len(builtinKeys)+len(o.Hooks)+len(o.Extra))
	for _, key := range builtinKeys {
		if o.hasField(key) {
			keys = append(keys, key)
		}
	}
	for _, hook := range LifecycleHooks {
		if _, ok := o.Hooks[hook]; ok {
			keys = append(keys, string(hook))
		}
	}
	extra := make([]string, 0, len(o.Extra))
	for key := range o.Extra {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func (o *Options) hasField(key string) bool {
	switch key {
	case keyName:
		return o.Name != ""
	case keyAbstract:
		return o.Abstract
	case keyEl:
		return o.El != ""
	case keyParent:
		return o.Parent != nil
	case keyData:
		return o.Data != nil
	case keyProps:
		return o.Props != nil
	case keyPropsData:
		return o.PropsData != nil
	case keyMethods:
		return o.Methods != nil
	case keyComputed:
		return o.Computed != nil
	case keyWatch:
		return o.Watch != nil
	case keyComponents:
		return o.Components != nil
	case keyDirectives:
		return o.Directives != nil
	case keyFilters:
		return o.Filters != nil
	case keyProvide:
		return o.Provide != nil
	case keyInject:
		return o.Inject != nil
	case keyRender:
		return o.Render != nil
	case keyStaticRenderFns:
		return o.StaticRenderFns != nil
	case keyMixins:
		return o.Mixins != nil
	case keyExtends:
		return o.Extends != nil
	case keyBase:
		return o.Base != nil
	}
	if _, ok := o.Hooks[LifecycleHook(key)]; ok {
		return true
	}
	_, ok := o.Extra[key]
	return ok
}

// field returns the value declared under key, or nil.
func (o *Options) field(key string) any {
	switch key {
	case keyName:
		return o.Name
	case keyAbstract:
		return o.Abstract
	case keyEl:
		return o.El
	case keyParent:
		return o.Parent
	case keyData:
		return o.Data
	case keyProps:
		return o.Props
	case keyPropsData:
		return o.PropsData
	case keyMethods:
		return o.Methods
	case keyComputed:
		return o.Computed
	case keyWatch:
		return o.Watch
	case keyComponents:
		return o.Components
	case keyDirectives:
		return o.Directives
	case keyFilters:
		return o.Filters
	case keyProvide:
		return o.Provide
	case keyInject:
		return o.Inject
	case keyRender:
		return o.Render
	case keyStaticRenderFns:
		return o.StaticRenderFns
	case keyMixins:
		return o.Mixins
	case keyExtends:
		return o.Extends
	case keyBase:
		return o.Base
	}
	if hooks, ok := o.Hooks[LifecycleHook(key)]; ok {
		return hooks
	}
	return o.Extra[key]
}

// setField stores value under key. The receiver must be a bag owned by the
// caller; maps it shares with other bags are replaced, not written to.
func (o *Options) setField(key string, value any) {
	switch key {
	case keyName:
		o.Name, _ = value.(string)
	case keyAbstract:
		o.Abstract, _ = value.(bool)
	case keyEl:
		o.El, _ = value.(string)
	case keyParent:
		o.Parent, _ = value.(*Instance)
	case keyData:
		o.Data, _ = value.(DataFunc)
	case keyProps:
		o.Props, _ = value.(map[string]Prop)
	case keyPropsData:
		o.PropsData, _ = value.(map[string]any)
	case keyMethods:
		o.Methods, _ = value.(map[string]Method)
	case keyComputed:
		o.Computed, _ = value.(map[string]Computed)
	case keyWatch:
		o.Watch, _ = value.(map[string][]*Watcher)
	case keyComponents:
		o.Components, _ = value.(map[string]Component)
	case keyDirectives:
		o.Directives, _ = value.(map[string]*Directive)
	case keyFilters:
		o.Filters, _ = value.(map[string]Filter)
	case keyProvide:
		o.Provide, _ = value.(ProvideFunc)
	case keyInject:
		o.Inject, _ = value.(map[string]Inject)
	case keyRender:
		o.Render, _ = value.(RenderFunc)
	case keyStaticRenderFns:
		o.StaticRenderFns, _ = value.([]RenderFunc)
	case keyMixins:
		o.Mixins, _ = value.([]Component)
	case keyExtends:
		o.Extends, _ = value.(Component)
	case keyBase:
		o.Base, _ = value.(*Constructor)
	default:
		if hooks, ok := value.([]*Hook); ok && isLifecycleHook(key) {
			next := make(Hooks, len(o.Hooks)+1)
			for name, list := range o.Hooks {
				next[name] = list
			}
			next[LifecycleHook(key)] = hooks
			o.Hooks = next
			return
		}
		next := make(map[string]any, len(o.Extra)+1)
		for k, v := range o.Extra {
			next[k] = v
		}
		next[key] = value
		o.Extra = next
	}
}

// sameField reports whether a and b hold the identical value under key.
// Containers compare by identity, functions by the token assigned when a
// merge produced them.
func sameField(a, b *Options, key string) bool {
	switch key {
	case keyData:
		return a.dataToken == b.dataToken && sameValue(a.Data, b.Data)
	case keyProvide:
		return a.provideToken == b.provideToken && sameValue(a.Provide, b.Provide)
	}
	return sameValue(a.field(key), b.field(key))
}

func sameValue(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		if va.Type().Comparable() {
			return a == b
		}
		return false
	}
}

func isLifecycleHook(key string) bool {
	for _, hook := range LifecycleHooks {
		if string(hook) == key {
			return true
		}
	}
	return false
}

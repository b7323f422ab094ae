package vcore

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/goliatone/go-vcore/reactive"
	"github.com/goliatone/go-vcore/scheduler"
)

// initState sets up props, methods, data, computed properties and watchers
// in that order.
func (vm *Instance) initState() error {
	vm.initProps()
	vm.initMethods()
	if err := vm.initData(); err != nil {
		return err
	}
	vm.initComputed()
	return vm.initWatch()
}

func (vm *Instance) initMethods() {
	g := vm.global
	for _, name := range sortedKeys(vm.options.Methods) {
		if vm.options.Methods[name] == nil {
			g.warnf(vm, "Method %q has an undefined value in the component definition. Did you reference the function correctly?", name)
		}
		if vm.props.Has(name) {
			g.warnf(vm, "Method %q has already been defined as a prop.", name)
		}
		if isReserved(name) {
			g.warnf(vm, "Method %q conflicts with an existing instance method. Avoid defining component methods that start with _ or $.", name)
		}
	}
}

func (vm *Instance) initData() error {
	var values map[string]any
	if vm.options.Data != nil {
		data, err := vm.options.Data(vm)
		if err != nil {
			return fmt.Errorf("vcore: data() of %s: %w", formatComponentName(vm), err)
		}
		values = data
	}
	g := vm.global
	for _, key := range sortedKeys(values) {
		if _, ok := vm.options.Methods[key]; ok {
			g.warnf(vm, "Method %q has already been defined as a data property.", key)
		}
		if vm.props.Has(key) {
			g.warnf(vm, "The data property %q is already declared as a prop. Use prop default value instead.", key)
		}
	}
	vm.data = reactive.Observe(values)
	vm.data.AttachRoot()
	return nil
}

type computedState struct {
	def        Computed
	value      any
	dirty      bool
	evaluating bool
	deps       []string
}

func (vm *Instance) initComputed() {
	vm.computed = map[string]*computedState{}
	g := vm.global
	for _, key := range sortedKeys(vm.options.Computed) {
		def := vm.options.Computed[key]
		if def.Get == nil && def.Expr == "" {
			g.warnf(vm, "Getter is missing for computed property %q.", key)
			continue
		}
		if vm.data.Has(key) {
			g.warnf(vm, "The computed property %q is already defined in data.", key)
			continue
		}
		if vm.props.Has(key) {
			g.warnf(vm, "The computed property %q is already defined as a prop.", key)
			continue
		}
		vm.computed[key] = &computedState{def: def, dirty: true}
	}
	if len(vm.computed) == 0 {
		return
	}
	for key, state := range vm.computed {
		if state.def.Expr == "" {
			continue
		}
		idents := identifiers(state.def.Expr)
		for other := range vm.computed {
			if _, ok := idents[other]; ok && other != key {
				state.deps = append(state.deps, other)
			}
		}
	}
	invalidate := func(string, any, any) {
		for _, state := range vm.computed {
			state.dirty = true
		}
	}
	vm.teardown = append(vm.teardown,
		vm.props.Subscribe("", invalidate),
		vm.data.Subscribe("", invalidate),
	)
}

// identifiers collects the word runs of expr that are not member accesses.
func identifiers(expr string) map[string]struct{} {
	out := map[string]struct{}{}
	for i := 0; i < len(expr); {
		if !isWordByte(expr[i]) {
			i++
			continue
		}
		start := i
		for i < len(expr) && isWordByte(expr[i]) {
			i++
		}
		if start > 0 && expr[start-1] == '.' {
			continue
		}
		out[expr[start:i]] = struct{}{}
	}
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// computedValue returns the cached value of a computed property, evaluating
// it when a write invalidated it.
func (vm *Instance) computedValue(key string, state *computedState) (any, error) {
	if !state.dirty {
		return state.value, nil
	}
	if state.evaluating {
		return nil, fmt.Errorf("vcore: computed property %q depends on itself", key)
	}
	state.evaluating = true
	defer func() { state.evaluating = false }()

	var (
		value any
		err   error
	)
	if state.def.Get != nil {
		value, err = state.def.Get(vm)
	} else {
		for _, dep := range state.deps {
			if _, depErr := vm.computedValue(dep, vm.computed[dep]); depErr != nil {
				return nil, depErr
			}
		}
		value, err = vm.Evaluate(state.def.Expr)
	}
	if err != nil {
		return nil, err
	}
	state.value = value
	state.dirty = false
	return value, nil
}

var watcherUID atomic.Uint64

type watcher struct {
	id     uint64
	vm     *Instance
	key    string
	spec   *Watcher
	value  any
	active bool
	unsubs []func()
}

func (vm *Instance) initWatch() error {
	for _, key := range sortedKeys(vm.options.Watch) {
		for _, spec := range vm.options.Watch[key] {
			if spec == nil {
				continue
			}
			if _, err := vm.watch(key, spec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Watch calls the handler of spec whenever the value under key changes.
// Keys may be props, data, computed properties or dotted paths into them.
// Handlers run on the next scheduler flush unless spec.Sync is set. The
// returned function stops watching.
func (vm *Instance) Watch(key string, spec *Watcher) (func(), error) {
	if vm.isDestroyed {
		return nil, ErrDestroyed
	}
	if spec == nil || (spec.Handler == nil && spec.Method == "") {
		return nil, fmt.Errorf("%w: watcher for %q has no handler", ErrInvalidOption, key)
	}
	w, err := vm.watch(key, spec)
	if err != nil {
		return nil, err
	}
	return w.stop, nil
}

func (vm *Instance) watch(key string, spec *Watcher) (*watcher, error) {
	if spec.Method != "" && spec.Handler == nil {
		if _, ok := vm.options.Methods[spec.Method]; !ok {
			vm.global.warnf(vm, "Watcher for %q references unknown method %q.", key, spec.Method)
		}
	}
	w := &watcher{
		id:     watcherUID.Add(1),
		vm:     vm,
		key:    key,
		spec:   spec,
		active: true,
	}
	value, err := w.get()
	if err != nil {
		return nil, err
	}
	w.value = value

	head, _ := splitPath(key)
	trigger := func(changed string, _, _ any) {
		if changed == head {
			w.notify()
			return
		}
		if _, ok := vm.computed[head]; ok {
			w.notify()
		}
	}
	w.unsubs = append(w.unsubs,
		vm.props.Subscribe("", trigger),
		vm.data.Subscribe("", trigger),
	)
	vm.watchers = append(vm.watchers, w)

	if spec.Immediate {
		if err := w.invoke(value, nil); err != nil {
			w.stop()
			return nil, fmt.Errorf("vcore: callback for immediate watcher %q: %w", key, err)
		}
	}
	return w, nil
}

func (w *watcher) get() (any, error) {
	value, err := w.vm.Get(w.key)
	if errors.Is(err, ErrUnknownProperty) {
		return nil, nil
	}
	return value, err
}

func (w *watcher) notify() {
	if !w.active {
		return
	}
	if w.spec.Sync {
		if err := w.run(); err != nil {
			w.vm.HandleError(err, fmt.Sprintf("callback for watcher %q", w.key))
		}
		return
	}
	w.vm.global.scheduler.QueueJob(scheduler.Job{ID: w.id, Run: w.run})
}

func (w *watcher) run() error {
	if !w.active {
		return nil
	}
	value, err := w.get()
	if err != nil {
		return err
	}
	if !reactive.HasChanged(value, w.value) {
		return nil
	}
	old := w.value
	w.value = value
	return w.invoke(value, old)
}

func (w *watcher) invoke(value, old any) error {
	if w.spec.Handler != nil {
		return w.spec.Handler(w.vm, value, old)
	}
	method, ok := w.vm.options.Methods[w.spec.Method]
	if !ok || method == nil {
		return fmt.Errorf("%w: watcher method %q", ErrUnknownProperty, w.spec.Method)
	}
	_, err := method(w.vm, value, old)
	return err
}

func (w *watcher) stop() {
	if !w.active {
		return
	}
	w.active = false
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
}

package vcore

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-vcore/internal/deep"
)

// MergeOptions combines parent and child into a new bag. Neither input is
// modified. vm is the instance being created, or nil when merging for Extend
// or Mixin. Configuration (custom strategies, warnings) comes from the root
// that owns vm or parent.Base.
func MergeOptions(parent, child *Options, vm *Instance) (*Options, error) {
	var g *globalState
	switch {
	case vm != nil:
		g = vm.global
	case parent != nil && parent.Base != nil:
		g = parent.Base.global
	}
	return mergeOptions(g, parent, child, vm)
}

func mergeOptions(g *globalState, parent, child *Options, vm *Instance) (*Options, error) {
	if parent == nil {
		parent = &Options{}
	}
	if child == nil {
		child = &Options{}
	}
	if g != nil && !g.config.Production {
		checkComponents(g, child)
	}

	child, err := normalizeOptions(child)
	if err != nil {
		return nil, err
	}

	if child.Extends != nil {
		parent, err = mergeOptions(g, parent, child.Extends.componentOptions(), vm)
		if err != nil {
			return nil, fmt.Errorf("extends: %w", err)
		}
	}
	for i, mixin := range child.Mixins {
		if mixin == nil {
			continue
		}
		parent, err = mergeOptions(g, parent, mixin.componentOptions(), vm)
		if err != nil {
			return nil, fmt.Errorf("mixin %d: %w", i, err)
		}
	}

	out := &Options{
		Name:            pick(child.Name, parent.Name),
		Abstract:        child.Abstract || parent.Abstract,
		El:              pick(child.El, parent.El),
		Parent:          pickPtr(child.Parent, parent.Parent),
		PropsData:       pickMap(child.PropsData, parent.PropsData),
		Props:           extendMap(parent.Props, child.Props),
		Methods:         extendMap(parent.Methods, child.Methods),
		Computed:        extendMap(parent.Computed, child.Computed),
		Inject:          extendMap(parent.Inject, child.Inject),
		Watch:           mergeWatch(parent.Watch, child.Watch),
		Hooks:           mergeHooks(parent.Hooks, child.Hooks),
		Components:      extendMap(parent.Components, child.Components),
		Directives:      extendMap(parent.Directives, child.Directives),
		Filters:         extendMap(parent.Filters, child.Filters),
		Render:          child.Render,
		StaticRenderFns: child.StaticRenderFns,
		Mixins:          child.Mixins,
		Extends:         child.Extends,
		Base:            pickPtr(child.Base, parent.Base),
	}
	if out.Render == nil {
		out.Render = parent.Render
		out.StaticRenderFns = parent.StaticRenderFns
	}
	if out.Mixins == nil {
		out.Mixins = parent.Mixins
	}
	if out.Extends == nil {
		out.Extends = parent.Extends
	}
	if vm == nil && g != nil {
		if child.El != "" {
			g.warnf(nil, "option %q can only be used during instance creation with New.", keyEl)
		}
		if child.PropsData != nil {
			g.warnf(nil, "option %q can only be used during instance creation with New.", keyPropsData)
		}
	}

	out.Data, out.dataToken = mergeDataFunc(parent.Data, parent.dataToken, child.Data, child.dataToken)
	out.Provide, out.provideToken = mergeProvideFunc(parent.Provide, parent.provideToken, child.Provide, child.provideToken)

	extra, err := mergeExtra(g, parent.Extra, child.Extra, vm)
	if err != nil {
		return nil, err
	}
	out.Extra = extra
	return out, nil
}

func checkComponents(g *globalState, options *Options) {
	names := make([]string, 0, len(options.Components))
	for name := range options.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.validateComponentName(name)
	}
}

func pick(child, parent string) string {
	if child != "" {
		return child
	}
	return parent
}

func pickPtr[T any](child, parent *T) *T {
	if child != nil {
		return child
	}
	return parent
}

func pickMap[K comparable, V any](child, parent map[K]V) map[K]V {
	if child != nil {
		return child
	}
	return parent
}

// extendMap returns a map holding parent entries overridden by child entries.
// When one side is nil the other is returned as-is so unchanged registries
// keep their identity.
func extendMap[K comparable, V any](parent, child map[K]V) map[K]V {
	if child == nil {
		return parent
	}
	if parent == nil {
		return child
	}
	out := make(map[K]V, len(parent)+len(child))
	for key, value := range parent {
		out[key] = value
	}
	for key, value := range child {
		out[key] = value
	}
	return out
}

// mergeHookList concatenates parent then child, dropping entries already
// present so a hook never runs twice for one lifecycle event.
func mergeHookList(parent, child []*Hook) []*Hook {
	if child == nil {
		return parent
	}
	if parent == nil {
		return dedupeHooks(child)
	}
	out := make([]*Hook, 0, len(parent)+len(child))
	out = append(out, parent...)
	out = append(out, child...)
	return dedupeHooks(out)
}

func dedupeHooks(hooks []*Hook) []*Hook {
	seen := make(map[*Hook]struct{}, len(hooks))
	for _, hook := range hooks {
		if _, dup := seen[hook]; dup {
			return filterHooks(hooks)
		}
		seen[hook] = struct{}{}
	}
	return hooks
}

func filterHooks(hooks []*Hook) []*Hook {
	seen := make(map[*Hook]struct{}, len(hooks))
	out := make([]*Hook, 0, len(hooks))
	for _, hook := range hooks {
		if _, dup := seen[hook]; dup {
			continue
		}
		seen[hook] = struct{}{}
		out = append(out, hook)
	}
	return out
}

func mergeHooks(parent, child Hooks) Hooks {
	if len(child) == 0 {
		if parent == nil {
			return child
		}
		return parent
	}
	if len(parent) == 0 {
		out := make(Hooks, len(child))
		for name, list := range child {
			out[name] = mergeHookList(nil, list)
		}
		return out
	}
	out := make(Hooks, len(parent)+len(child))
	for name, list := range parent {
		out[name] = list
	}
	for name, list := range child {
		out[name] = mergeHookList(parent[name], list)
	}
	return out
}

// mergeWatch concatenates the handler lists per key, parent first. A watcher
// already present for a key is not added again.
func mergeWatch(parent, child map[string][]*Watcher) map[string][]*Watcher {
	if child == nil {
		return parent
	}
	if parent == nil {
		return child
	}
	out := make(map[string][]*Watcher, len(parent)+len(child))
	for key, list := range parent {
		out[key] = list
	}
	for key, list := range child {
		existing := out[key]
		if existing == nil {
			out[key] = list
			continue
		}
		merged := make([]*Watcher, 0, len(existing)+len(list))
		merged = append(merged, existing...)
		for _, w := range list {
			if !containsWatcher(merged, w) {
				merged = append(merged, w)
			}
		}
		out[key] = merged
	}
	return out
}

// mergeDataFunc returns a function producing the child data deep merged over
// the parent data. A fresh token marks every newly built function.
func mergeDataFunc(parent DataFunc, parentToken uint64, child DataFunc, childToken uint64) (DataFunc, uint64) {
	if child == nil {
		return parent, parentToken
	}
	if parent == nil {
		return child, childToken
	}
	merged := func(vm *Instance) (map[string]any, error) {
		childData, err := child(vm)
		if err != nil {
			return nil, err
		}
		parentData, err := parent(vm)
		if err != nil {
			return nil, err
		}
		if childData == nil {
			return parentData, nil
		}
		return deep.MergeData(childData, parentData), nil
	}
	return merged, nextFuncToken()
}

func mergeProvideFunc(parent ProvideFunc, parentToken uint64, child ProvideFunc, childToken uint64) (ProvideFunc, uint64) {
	var p, c DataFunc
	if parent != nil {
		p = DataFunc(parent)
	}
	if child != nil {
		c = DataFunc(child)
	}
	merged, token := mergeDataFunc(p, parentToken, c, childToken)
	if merged == nil {
		return nil, token
	}
	return ProvideFunc(merged), token
}

func mergeExtra(g *globalState, parent, child map[string]any, vm *Instance) (map[string]any, error) {
	if parent == nil && child == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(parent)+len(child))
	for key := range parent {
		keys = append(keys, key)
	}
	for key := range child {
		if _, ok := parent[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		parentValue := parent[key]
		childValue, hasChild := child[key]
		var strategy StrategyFunc
		if g != nil {
			strategy = g.config.OptionMergeStrategies[key]
		}
		if strategy == nil {
			if hasChild {
				out[key] = childValue
			} else {
				out[key] = parentValue
			}
			continue
		}
		value, err := strategy(parentValue, childValue, vm, key)
		if err != nil {
			return nil, fmt.Errorf("%w: merge strategy for %q: %v", ErrInvalidOption, key, err)
		}
		out[key] = value
	}
	return out, nil
}

package vcore

import "fmt"

// initInjections resolves the inject declarations against the provided
// values of the ancestors, closest first.
func (vm *Instance) initInjections() {
	inject := vm.options.Inject
	if len(inject) == 0 {
		return
	}
	result := make(map[string]any, len(inject))
	for _, key := range sortedKeys(inject) {
		entry := inject[key]
		from := entry.From
		if from == "" {
			from = key
		}
		if value, ok := resolveProvided(vm.parent, from); ok {
			result[key] = value
			continue
		}
		if !entry.hasDefault() {
			vm.global.warnf(vm, "Injection %q not found", key)
			continue
		}
		if entry.DefaultFunc != nil {
			result[key] = entry.DefaultFunc(vm)
		} else {
			result[key] = entry.Default
		}
	}
	vm.injected = result
}

func resolveProvided(source *Instance, key string) (any, bool) {
	for ; source != nil; source = source.parent {
		if value, ok := source.provided[key]; ok {
			return value, true
		}
	}
	return nil, false
}

// initProvide computes the provided values once state exists, so they may
// read data and computed properties.
func (vm *Instance) initProvide() error {
	provide := vm.options.Provide
	if provide == nil {
		return nil
	}
	provided, err := provide(vm)
	if err != nil {
		return fmt.Errorf("vcore: provide of %s: %w", formatComponentName(vm), err)
	}
	vm.provided = provided
	return nil
}

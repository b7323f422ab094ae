package vcore

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-vcore/reactive"
)

// PropType names the accepted kind of a prop value.
type PropType string

const (
	PropString   PropType = "String"
	PropNumber   PropType = "Number"
	PropBoolean  PropType = "Boolean"
	PropArray    PropType = "Array"
	PropObject   PropType = "Object"
	PropFunction PropType = "Function"
)

// Prop declares one component prop. An empty Type accepts any value.
type Prop struct {
	Type        []PropType
	Required    bool
	Default     any
	DefaultFunc func(vm *Instance) any
	Validator   func(value any) bool
}

func (p Prop) typeIndex(t PropType) int {
	for i, candidate := range p.Type {
		if candidate == t {
			return i
		}
	}
	return -1
}

func (p Prop) hasDefault() bool {
	return p.Default != nil || p.DefaultFunc != nil
}

var reservedAttrs = map[string]struct{}{
	"key":        {},
	"ref":        {},
	"slot":       {},
	"slot-scope": {},
	"is":         {},
}

// initProps validates props data against the declared props. Validation
// failures are warnings; the value is kept.
func (vm *Instance) initProps() {
	g := vm.global
	values := make(map[string]any, len(vm.options.Props))
	for _, key := range sortedKeys(vm.options.Props) {
		prop := vm.options.Props[key]
		if _, reserved := reservedAttrs[hyphenate(key)]; reserved {
			g.warnf(vm, "%q is a reserved attribute and cannot be used as component prop.", hyphenate(key))
		}
		value, err := vm.validateProp(key, prop, vm.options.PropsData)
		if err != nil {
			g.warn(err.Error(), vm)
		}
		values[key] = value
	}
	vm.props = reactive.Observe(values)
}

// validateProp resolves the value of key from propsData, applying boolean
// casting and defaults, then checks it.
func (vm *Instance) validateProp(key string, prop Prop, propsData map[string]any) (any, error) {
	value, present := propsData[key]

	if booleanIndex := prop.typeIndex(PropBoolean); booleanIndex > -1 {
		if !present && !prop.hasDefault() {
			value = false
		} else if s, ok := value.(string); ok && (s == "" || s == hyphenate(key)) {
			stringIndex := prop.typeIndex(PropString)
			if stringIndex < 0 || booleanIndex < stringIndex {
				value = true
			}
		}
	}
	if value == nil {
		value = vm.propDefault(key, prop)
	}
	return value, assertProp(key, prop, value, present)
}

func (vm *Instance) propDefault(key string, prop Prop) any {
	if prop.DefaultFunc != nil {
		return prop.DefaultFunc(vm)
	}
	if prop.Default == nil {
		return nil
	}
	switch reflect.ValueOf(prop.Default).Kind() {
	case reflect.Map, reflect.Slice:
		vm.global.warnf(vm, "Invalid default value for prop %q: Props with type Object/Array must use a factory function to return the default value.", key)
	}
	return prop.Default
}

func assertProp(key string, prop Prop, value any, present bool) error {
	if prop.Required && !present {
		return fmt.Errorf("%w: Missing required prop: %q", ErrPropValidation, key)
	}
	if value == nil && !prop.Required {
		return nil
	}
	if len(prop.Type) > 0 {
		valid := false
		for _, t := range prop.Type {
			if matchesPropType(t, value) {
				valid = true
				break
			}
		}
		if !valid {
			names := make([]string, len(prop.Type))
			for i, t := range prop.Type {
				names[i] = string(t)
			}
			return fmt.Errorf("%w: Invalid prop: type check failed for prop %q. Expected %s, got %s.",
				ErrPropValidation, key, strings.Join(names, ", "), propTypeOf(value))
		}
	}
	if prop.Validator != nil && !prop.Validator(value) {
		return fmt.Errorf("%w: Invalid prop: custom validator check failed for prop %q.", ErrPropValidation, key)
	}
	return nil
}

func matchesPropType(t PropType, value any) bool {
	return propTypeOf(value) == t
}

// propTypeOf maps a Go value to the prop type it satisfies. Structs count as
// objects.
func propTypeOf(value any) PropType {
	if value == nil {
		return "Null"
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.String:
		return PropString
	case reflect.Bool:
		return PropBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return PropNumber
	case reflect.Slice, reflect.Array:
		return PropArray
	case reflect.Map, reflect.Struct, reflect.Pointer:
		return PropObject
	case reflect.Func:
		return PropFunction
	}
	return PropType(reflect.TypeOf(value).String())
}

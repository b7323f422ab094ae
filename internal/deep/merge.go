// Package deep provides reflection based cloning and merging for the loosely
// typed values that flow through component data and provide functions.
package deep

import "reflect"

// MergeData folds parent into child and returns a new map. Keys present only in
// parent are added, nested maps present on both sides are merged recursively,
// and child values win every other conflict. Neither input is mutated.
func MergeData(child, parent map[string]any) map[string]any {
	if child == nil && parent == nil {
		return nil
	}
	if parent == nil {
		return Clone(child)
	}
	if child == nil {
		return Clone(parent)
	}
	merged := mergeValue(reflect.ValueOf(child), reflect.ValueOf(parent))
	if !merged.IsValid() {
		return nil
	}
	return merged.Interface().(map[string]any)
}

// Clone returns a deep copy of value. Functions, channels and unexported struct
// fields are shared with the original.
func Clone[T any](value T) T {
	var zero T
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return zero
	}
	if out, ok := cloned.Interface().(T); ok {
		return out
	}
	return value
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return cloneValue(weak)
	}

	switch strong.Kind() {
	case reflect.Interface:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		} else if weak.IsValid() && weak.Kind() != reflect.Interface {
			weakElem = weak
		}
		return mergeValue(strong.Elem(), weakElem)
	case reflect.Map:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		if !weak.IsValid() || weak.Kind() != reflect.Map || weak.Type() != strong.Type() || weak.IsNil() {
			return cloneValue(strong)
		}
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len()+weak.Len())
		iter := strong.MapRange()
		for iter.Next() {
			result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		iter = weak.MapRange()
		for iter.Next() {
			key := iter.Key()
			existing := strong.MapIndex(key)
			if !existing.IsValid() {
				result.SetMapIndex(key, cloneValue(iter.Value()))
				continue
			}
			if isPlainMap(existing) && isPlainMap(iter.Value()) {
				result.SetMapIndex(key, mergeValue(existing, iter.Value()))
			}
		}
		return result
	default:
		return cloneValue(strong)
	}
}

func isPlainMap(v reflect.Value) bool {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.IsValid() && v.Kind() == reflect.Map && !v.IsNil()
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}

// Package reactive holds observed key/value containers used as component
// state. It is the minimal reactivity collaborator of vcore: writes notify
// subscribers synchronously and carry no dependency tracking.
//
// Objects are NOT safe for concurrent use. They belong to the single host
// goroutine that drives component instantiation.
package reactive

import (
	"reflect"
	"sort"
)

// Subscriber receives the key, the new value and the previous value of a write.
type Subscriber func(key string, value, old any)

type subscription struct {
	id  uint64
	key string
	fn  Subscriber
}

// Object is an observed map of property values.
type Object struct {
	values  map[string]any
	subs    []*subscription
	nextID  uint64
	vmCount int
}

// Observe returns an Object seeded with a shallow copy of values.
func Observe(values map[string]any) *Object {
	obj := &Object{values: make(map[string]any, len(values))}
	for key, value := range values {
		obj.values[key] = value
	}
	return obj
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	value, ok := o.values[key]
	return value, ok
}

// Has reports whether key is defined.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len returns the number of defined keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.values)
}

// Keys returns the defined keys sorted alphabetically.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.values))
	for key := range o.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the current values.
func (o *Object) Snapshot() map[string]any {
	out := make(map[string]any, o.Len())
	if o == nil {
		return out
	}
	for key, value := range o.values {
		out[key] = value
	}
	return out
}

// Set writes value under key, defining the key when missing. Subscribers are
// notified when the value changed.
func (o *Object) Set(key string, value any) {
	old, existed := o.values[key]
	o.values[key] = value
	if existed && !HasChanged(old, value) {
		return
	}
	o.notify(key, value, old)
}

// Delete removes key and notifies subscribers. It reports whether the key was
// present.
func (o *Object) Delete(key string) bool {
	old, ok := o.values[key]
	if !ok {
		return false
	}
	delete(o.values, key)
	o.notify(key, nil, old)
	return true
}

// Subscribe registers fn for writes to key. An empty key subscribes to every
// write. The returned function removes the subscription.
func (o *Object) Subscribe(key string, fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}
	o.nextID++
	sub := &subscription{id: o.nextID, key: key, fn: fn}
	o.subs = append(o.subs, sub)
	return func() {
		for i, existing := range o.subs {
			if existing.id == sub.id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// AttachRoot marks the object as the root data of a component instance.
func (o *Object) AttachRoot() {
	o.vmCount++
}

// DetachRoot reverses AttachRoot.
func (o *Object) DetachRoot() {
	if o.vmCount > 0 {
		o.vmCount--
	}
}

// IsRoot reports whether the object backs the root data of any instance.
func (o *Object) IsRoot() bool {
	return o != nil && o.vmCount > 0
}

func (o *Object) notify(key string, value, old any) {
	subs := append([]*subscription(nil), o.subs...)
	for _, sub := range subs {
		if sub.key == "" || sub.key == key {
			sub.fn(key, value, old)
		}
	}
}

// DefineReactive defines key on obj with value, overwriting any previous
// definition.
func DefineReactive(obj *Object, key string, value any) {
	if obj == nil {
		return
	}
	obj.Set(key, value)
}

// HasChanged reports whether two values differ. Values whose dynamic types are
// not comparable always count as changed.
func HasChanged(a, b any) bool {
	if a == nil || b == nil {
		return a != b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return true
	}
	return a != b
}

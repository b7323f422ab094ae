package reactive

import (
	"reflect"
	"testing"
)

func TestObserveCopiesInput(t *testing.T) {
	src := map[string]any{"a": 1}
	obj := Observe(src)
	obj.Set("a", 2)
	if src["a"] != 1 {
		t.Fatalf("expected source map untouched, got %v", src["a"])
	}
	if v, _ := obj.Get("a"); v != 2 {
		t.Fatalf("expected 2, got %v", v)
	}
}

func TestSetNotifiesOnChangeOnly(t *testing.T) {
	obj := Observe(map[string]any{"count": 1})
	var calls []string
	obj.Subscribe("count", func(key string, value, old any) {
		calls = append(calls, key)
		if value != 2 || old != 1 {
			t.Fatalf("unexpected values %v -> %v", old, value)
		}
	})

	obj.Set("count", 1)
	if len(calls) != 0 {
		t.Fatalf("expected no notification for same value, got %v", calls)
	}
	obj.Set("count", 2)
	if len(calls) != 1 {
		t.Fatalf("expected one notification, got %v", calls)
	}
}

func TestWildcardSubscriptionAndUnsubscribe(t *testing.T) {
	obj := Observe(nil)
	var keys []string
	off := obj.Subscribe("", func(key string, _, _ any) {
		keys = append(keys, key)
	})
	obj.Set("a", 1)
	obj.Set("b", []any{1})
	obj.Delete("a")
	off()
	obj.Set("c", 3)

	if !reflect.DeepEqual([]string{"a", "b", "a"}, keys) {
		t.Fatalf("unexpected notifications: %v", keys)
	}
	if got := obj.Keys(); !reflect.DeepEqual([]string{"b", "c"}, got) {
		t.Fatalf("unexpected keys: %v", got)
	}
}

func TestDeleteMissingKey(t *testing.T) {
	obj := Observe(nil)
	if obj.Delete("missing") {
		t.Fatalf("expected false for missing key")
	}
}

func TestRootTracking(t *testing.T) {
	obj := Observe(nil)
	if obj.IsRoot() {
		t.Fatalf("new object must not be root")
	}
	obj.AttachRoot()
	if !obj.IsRoot() {
		t.Fatalf("expected root after attach")
	}
	obj.DetachRoot()
	obj.DetachRoot()
	if obj.IsRoot() {
		t.Fatalf("expected not root after detach")
	}
}

func TestHasChanged(t *testing.T) {
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"same int", 1, 1, false},
		{"different int", 1, 2, true},
		{"different types", 1, "1", true},
		{"nil and nil", nil, nil, false},
		{"nil and value", nil, 1, true},
		{"slices", []int{1}, []int{1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasChanged(tc.a, tc.b); got != tc.want {
				t.Fatalf("HasChanged(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

package vcore

import (
	"strings"
	"testing"
)

type warningLog struct {
	msgs []string
}

func (w *warningLog) record(msg string, _ *Instance, _ string) {
	w.msgs = append(w.msgs, msg)
}

func (w *warningLog) contains(fragment string) bool {
	for _, msg := range w.msgs {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func newTestRoot(t *testing.T, opts ...RootOption) (*Constructor, *warningLog) {
	t.Helper()
	root := NewRoot(opts...)
	log := &warningLog{}
	root.SetWarnHandler(log.record)
	return root, log
}

func mustExtend(t *testing.T, c *Constructor, options *Options) *Constructor {
	t.Helper()
	sub, err := c.Extend(options)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	return sub
}

func mustNew(t *testing.T, c *Constructor, options *Options) *Instance {
	t.Helper()
	vm, err := c.New(options)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return vm
}

func mustGet(t *testing.T, vm *Instance, key string) any {
	t.Helper()
	value, err := vm.Get(key)
	if err != nil {
		t.Fatalf("get %q: %v", key, err)
	}
	return value
}

// recorder returns a hook appending label to calls.
func recorder(calls *[]string, label string) *Hook {
	return NewHook(func(*Instance) error {
		*calls = append(*calls, label)
		return nil
	})
}

func staticData(values map[string]any) DataFunc {
	return func(*Instance) (map[string]any, error) {
		out := make(map[string]any, len(values))
		for key, value := range values {
			out[key] = value
		}
		return out, nil
	}
}

// sameHooks compares hook lists by identity.
func sameHooks(got, want []*Hook) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

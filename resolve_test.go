package vcore

import (
	"reflect"
	"testing"

	"github.com/goliatone/go-vcore/pkg/activity"
)

func TestResolveOptionsCacheHit(t *testing.T) {
	root := NewRoot()
	sub := mustExtend(t, root, &Options{Name: "sub"})
	leaf := mustExtend(t, sub, &Options{Name: "leaf"})

	for _, ctor := range []*Constructor{root, sub, leaf} {
		first, err := ctor.ResolveOptions()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		second, err := ctor.ResolveOptions()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if first != second {
			t.Fatalf("cid=%d: expected identical options on cache hit", ctor.CID())
		}
		if first != ctor.Options() {
			t.Fatalf("cid=%d: expected cached options returned", ctor.CID())
		}
	}
}

func TestResolveOptionsReflectsLateMixin(t *testing.T) {
	var calls []string
	root := NewRoot()
	sub := mustExtend(t, root, &Options{Name: "sub"})
	before := sub.Options()

	if err := root.Mixin(&Options{Hooks: Hooks{Created: {recorder(&calls, "global")}}}); err != nil {
		t.Fatalf("mixin: %v", err)
	}
	after, err := sub.ResolveOptions()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if after == before {
		t.Fatalf("expected options recomputed after ancestor mutation")
	}
	if sub.SuperOptions() != root.Options() {
		t.Fatalf("expected super options updated")
	}
	if len(after.Hook(Created)) != 1 {
		t.Fatalf("expected mixin hook visible, got %d", len(after.Hook(Created)))
	}
	if got, ok := after.Components["sub"]; !ok || got != Component(sub) {
		t.Fatalf("expected constructor registered under its own name")
	}
}

func TestResolveOptionsDedupesInheritedHooks(t *testing.T) {
	var calls []string
	hA := recorder(&calls, "A")
	hB := recorder(&calls, "B")
	hC := recorder(&calls, "C")
	hD := recorder(&calls, "D")

	root := NewRoot()
	if err := root.Mixin(&Options{Hooks: Hooks{Created: {hA}}}); err != nil {
		t.Fatalf("mixin: %v", err)
	}
	sub := mustExtend(t, root, &Options{Hooks: Hooks{Created: {hB}}})
	if err := sub.Mixin(&Options{Hooks: Hooks{Created: {hC}}}); err != nil {
		t.Fatalf("sub mixin: %v", err)
	}
	if err := root.Mixin(&Options{Hooks: Hooks{Created: {hD}}}); err != nil {
		t.Fatalf("late mixin: %v", err)
	}

	options, err := sub.ResolveOptions()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !sameHooks(options.Hook(Created), []*Hook{hA, hD, hB, hC}) {
		t.Fatalf("unexpected hook list order")
	}

	mustNew(t, sub, nil)
	if !reflect.DeepEqual(calls, []string{"A", "D", "B", "C"}) {
		t.Fatalf("expected each hook once, got %v", calls)
	}
}

func TestDedupeRule(t *testing.T) {
	a, b, c := NewHook(nil), NewHook(nil), NewHook(nil)

	cases := []struct {
		name     string
		latest   any
		extended any
		sealed   any
		want     any
	}{
		{
			name:     "drops sealed inherited entries",
			latest:   []*Hook{a, b, c},
			extended: []*Hook{b},
			sealed:   []*Hook{a, b},
			want:     []*Hook{b, c},
		},
		{
			name:     "keeps extension entries even when sealed",
			latest:   []*Hook{a},
			extended: []*Hook{a},
			sealed:   []*Hook{a},
			want:     []*Hook{a},
		},
		{
			name:     "no extension value",
			latest:   []*Hook{a, c},
			extended: nil,
			sealed:   []*Hook{a},
			want:     []*Hook{c},
		},
		{
			name:     "non sequence values pass through",
			latest:   "latest",
			extended: "extended",
			sealed:   "sealed",
			want:     "latest",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dedupe(tc.latest, tc.extended, tc.sealed)
			if want, ok := tc.want.([]*Hook); ok {
				list, _ := got.([]*Hook)
				if !sameHooks(list, want) {
					t.Fatalf("dedupe() = %v, want %v", got, tc.want)
				}
				return
			}
			if got != tc.want {
				t.Fatalf("dedupe() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDedupeWatchMap(t *testing.T) {
	a, b, c := &Watcher{}, &Watcher{}, &Watcher{}
	latest := map[string][]*Watcher{"x": {a, b}, "y": {c}}
	extended := map[string][]*Watcher{"x": {b}}
	sealed := map[string][]*Watcher{"x": {a, b}}

	got, _ := dedupe(latest, extended, sealed).(map[string][]*Watcher)
	want := map[string][]*Watcher{"x": {b}, "y": {c}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedupe() = %v, want %v", got, want)
	}
}

func TestResolveWatchersSurviveRepeatedAncestorMutations(t *testing.T) {
	var calls []string
	watcher := func(label string) *Watcher {
		return &Watcher{Sync: true, Handler: func(*Instance, any, any) error {
			calls = append(calls, label)
			return nil
		}}
	}

	root := NewRoot()
	if err := root.Mixin(&Options{Watch: map[string][]*Watcher{"x": {watcher("global")}}}); err != nil {
		t.Fatalf("mixin: %v", err)
	}
	sub := mustExtend(t, root, &Options{
		Data:  staticData(map[string]any{"x": 1}),
		Watch: map[string][]*Watcher{"x": {watcher("own")}},
	})

	for i := 0; i < 3; i++ {
		if err := root.Mixin(&Options{}); err != nil {
			t.Fatalf("mixin %d: %v", i, err)
		}
		if _, err := sub.ResolveOptions(); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	if got := len(sub.Options().Watch["x"]); got != 2 {
		t.Fatalf("expected 2 watchers for x, got %d", got)
	}
	vm := mustNew(t, sub, nil)
	if err := vm.Set("x", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if want := []string{"global", "own"}; !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestMergeWatchSkipsSharedWatcher(t *testing.T) {
	shared, own := &Watcher{}, &Watcher{}
	got := mergeWatch(map[string][]*Watcher{"x": {shared}}, map[string][]*Watcher{"x": {shared, own}})
	if want := []*Watcher{shared, own}; !reflect.DeepEqual(got["x"], want) {
		t.Fatalf("mergeWatch() = %v, want %v", got["x"], want)
	}
}

// Non-sequence fields modified on a subclass are folded back as opaque
// values: after the first re-resolution the subclass keeps the method map it
// saw, so a later root change to the same method is shadowed.
func TestResolveNonSequenceFieldsAreLastWriteWins(t *testing.T) {
	method := func(label string) Method {
		return func(*Instance, ...any) (any, error) { return label, nil }
	}

	root := NewRoot()
	sub := mustExtend(t, root, &Options{Name: "sub", Methods: map[string]Method{"own": method("own")}})

	if err := root.Mixin(&Options{Methods: map[string]Method{"shared": method("v1")}}); err != nil {
		t.Fatalf("mixin: %v", err)
	}
	vm := mustNew(t, sub, nil)
	if got, _ := vm.Call("shared"); got != "v1" {
		t.Fatalf("expected v1 after first resolution, got %v", got)
	}

	if err := root.Mixin(&Options{Methods: map[string]Method{"shared": method("v2"), "extra": method("extra")}}); err != nil {
		t.Fatalf("mixin: %v", err)
	}
	vm = mustNew(t, sub, nil)
	if got, _ := vm.Call("shared"); got != "v1" {
		t.Fatalf("expected modified method map to win, got %v", got)
	}
	if got, _ := vm.Call("extra"); got != "extra" {
		t.Fatalf("expected new root method visible, got %v", got)
	}
	if got, _ := vm.Call("own"); got != "own" {
		t.Fatalf("expected own method kept, got %v", got)
	}
}

func TestExtendCachesPerSuper(t *testing.T) {
	root := NewRoot()
	bag := &Options{Name: "cached"}

	first := mustExtend(t, root, bag)
	second := mustExtend(t, root, bag)
	if first != second {
		t.Fatalf("expected cached subclass for the same bag")
	}

	other := mustExtend(t, first, bag)
	if other == first {
		t.Fatalf("expected a distinct subclass for a different super")
	}
	if first.CID() == 0 || other.CID() <= first.CID() {
		t.Fatalf("expected increasing cids, got %d and %d", first.CID(), other.CID())
	}
	if found, ok := root.Lookup(other.CID()); !ok || found != other {
		t.Fatalf("expected lookup by cid")
	}
	if first.Super() != root || !root.IsRoot() || first.IsRoot() {
		t.Fatalf("unexpected chain links")
	}
}

func TestExtendSealsSnapshot(t *testing.T) {
	root := NewRoot()
	sub := mustExtend(t, root, &Options{Name: "sealed"})
	sealed := sub.SealedOptions()

	if sealed == sub.Options() {
		t.Fatalf("sealed snapshot must be a distinct bag")
	}
	if err := sub.Mixin(&Options{Methods: map[string]Method{"m": nil}}); err != nil {
		t.Fatalf("mixin: %v", err)
	}
	if sub.SealedOptions() != sealed || sealed.Methods != nil {
		t.Fatalf("sealed snapshot must not follow later mixins")
	}
}

func TestResolveEmitsEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	root := NewRoot(WithActivityHooks(activity.VerbFilter{
		Verbs: []string{activity.VerbComponentExtended, activity.VerbOptionsMixin, activity.VerbOptionsResolved},
		Next:  capture,
	}))
	sub := mustExtend(t, root, &Options{Name: "todo"})
	_ = root.Mixin(&Options{})
	if _, err := sub.ResolveOptions(); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []string{activity.VerbComponentExtended, activity.VerbOptionsMixin, activity.VerbOptionsResolved}
	if !reflect.DeepEqual(capture.Verbs(), want) {
		t.Fatalf("unexpected verbs %v", capture.Verbs())
	}
	resolved := capture.Events[2]
	if resolved.ObjectID != "todo" || resolved.Metadata["super_cid"] != uint64(0) {
		t.Fatalf("unexpected resolved event %+v", resolved)
	}
}

package deep

import (
	"reflect"
	"testing"
)

func TestMergeDataChildWinsAndParentFills(t *testing.T) {
	child := map[string]any{
		"a": 1,
		"nested": map[string]any{
			"x": "child",
		},
		"list": []any{"c"},
	}
	parent := map[string]any{
		"a": 0,
		"b": 2,
		"nested": map[string]any{
			"x": "parent",
			"y": "parent",
		},
		"list": []any{"p1", "p2"},
	}

	got := MergeData(child, parent)
	want := map[string]any{
		"a": 1,
		"b": 2,
		"nested": map[string]any{
			"x": "child",
			"y": "parent",
		},
		"list": []any{"c"},
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged data mismatch\nwant: %#v\n got: %#v", want, got)
	}

	got["nested"].(map[string]any)["x"] = "mutated"
	if child["nested"].(map[string]any)["x"] != "child" {
		t.Fatalf("expected child input untouched, got %#v", child)
	}
	if _, ok := child["b"]; ok {
		t.Fatalf("expected child input not to gain parent keys")
	}
}

func TestMergeDataNilSides(t *testing.T) {
	if got := MergeData(nil, nil); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
	parent := map[string]any{"k": "v"}
	got := MergeData(nil, parent)
	got["k"] = "changed"
	if parent["k"] != "v" {
		t.Fatalf("expected parent to be cloned")
	}
	if got := MergeData(map[string]any{"c": 1}, nil); got["c"] != 1 {
		t.Fatalf("expected child clone, got %#v", got)
	}
}

func TestMergeDataScalarOverMap(t *testing.T) {
	got := MergeData(
		map[string]any{"k": "scalar"},
		map[string]any{"k": map[string]any{"inner": true}},
	)
	if got["k"] != "scalar" {
		t.Fatalf("expected child scalar to win, got %#v", got["k"])
	}
}

func TestCloneDetachesNestedValues(t *testing.T) {
	src := map[string]any{
		"items": []any{map[string]any{"id": 1}},
	}
	dst := Clone(src)
	dst["items"].([]any)[0].(map[string]any)["id"] = 2
	if src["items"].([]any)[0].(map[string]any)["id"] != 1 {
		t.Fatalf("expected deep clone, source mutated: %#v", src)
	}
	var nilMap map[string]any
	if Clone(nilMap) != nil {
		t.Fatalf("expected nil clone of nil map")
	}
}

package hydrate

import (
	"errors"
	"strings"
	"testing"
)

type sampleDoc struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Extra map[string]any `json:"extra"`
}

func TestDecodeRunsHooksInOrder(t *testing.T) {
	var order []string
	decoder := NewDecoder(
		WithPreHook[sampleDoc](func(_ Context, payload map[string]any) (map[string]any, error) {
			order = append(order, "pre")
			payload["count"] = 3
			return payload, nil
		}),
		WithPostHook(func(_ Context, doc *sampleDoc) error {
			order = append(order, "post")
			doc.Name = strings.ToUpper(doc.Name)
			return nil
		}),
	)

	payload := map[string]any{"name": "card", "extra": map[string]any{"k": "v"}}
	got, err := decoder.Decode(Context{Source: "card.yaml", Format: "yaml"}, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "CARD" || got.Count != 3 {
		t.Fatalf("unexpected doc: %+v", got)
	}
	if strings.Join(order, ",") != "pre,post" {
		t.Fatalf("unexpected hook order: %v", order)
	}
	if _, ok := payload["count"]; ok {
		t.Fatalf("expected caller payload untouched, got %+v", payload)
	}
}

func TestDecodeRejectsNilPayload(t *testing.T) {
	_, err := NewDecoder[sampleDoc]().Decode(Context{}, nil)
	if err == nil || !strings.Contains(err.Error(), "<inline>") {
		t.Fatalf("expected nil payload error naming inline source, got %v", err)
	}
}

func TestDecodeWrapsHookErrors(t *testing.T) {
	boom := errors.New("boom")
	decoder := NewDecoder(WithPostHook(func(Context, *sampleDoc) error { return boom }))
	_, err := decoder.Decode(Context{Source: "x.json"}, map[string]any{"name": "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder(WithDisallowUnknownFields[sampleDoc]())
	_, err := decoder.Decode(Context{Source: "x.json"}, map[string]any{"name": "x", "bogus": true})
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
}

package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	recipients := []string{" a ", "b "}
	evt := Event{
		Verb:       " component.created ",
		ActorID:    " actor ",
		TenantID:   " tenant ",
		ObjectType: " component ",
		ObjectID:   " todo#1 ",
		Channel:    " components ",
		Recipients: recipients,
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "component.created" || got.ObjectType != "component" || got.ObjectID != "todo#1" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.TenantID != "tenant" || got.Channel != "components" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
	got.Recipients[0] = "changed"
	if recipients[0] != " a " {
		t.Fatalf("expected original recipients untouched: %+v", recipients)
	}
}

func TestHooksNotifySkipsIncompleteEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: "component.created"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	var ctx context.Context
	err := hooks.Notify(ctx, Event{Verb: "component.created", ObjectType: "component", ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestVerbFilterForwardsListedVerbs(t *testing.T) {
	capture := &CaptureHook{}
	filter := VerbFilter{Verbs: []string{VerbPluginInstalled}, Next: capture}
	hooks := Hooks{filter}

	_ = hooks.Notify(context.Background(), Event{Verb: VerbComponentCreated, ObjectType: "component", ObjectID: "a"})
	_ = hooks.Notify(context.Background(), Event{Verb: VerbPluginInstalled, ObjectType: "plugin", ObjectID: "p"})

	if len(capture.Events) != 1 || capture.Events[0].Verb != VerbPluginInstalled {
		t.Fatalf("expected only plugin event forwarded, got %+v", capture.Events)
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbComponentMounted, ObjectType: "component", ObjectID: "1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	var nilEmitter *Emitter
	if err := nilEmitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil emitter to drop events, got %v", err)
	}

	enabled := NewEmitter(Hooks{nil, capture}, Config{Enabled: true})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 || capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %+v", capture.Events)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "ui"})
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbComponentCreated,
		ObjectType: "component",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: when,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if !capture.Events[0].OccurredAt.Equal(when) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
	if emitter.Channel() != "ui" {
		t.Fatalf("expected configured channel, got %q", emitter.Channel())
	}
}

func TestCloneHooksDropsNil(t *testing.T) {
	if CloneHooks(Hooks{nil}) != nil {
		t.Fatalf("expected nil when only nil hooks supplied")
	}
	if got := CloneHooks(Hooks{nil, &CaptureHook{}}); len(got) != 1 {
		t.Fatalf("expected one hook, got %d", len(got))
	}
}

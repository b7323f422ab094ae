package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-vcore/pkg/activity"
	"github.com/goliatone/go-vcore/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsComponentEvent(t *testing.T) {
	sink := &recordingSink{}
	actorID := uuid.New()
	tenantID := uuid.New()
	hook := usersink.Hook{Sink: sink, DefaultTenant: tenantID}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := activity.BuildComponentEvent(activity.VerbComponentExtended, activity.ComponentEventInput{
		Component:  "todo-item",
		CID:        4,
		SuperCID:   0,
		SessionID:  "session",
		ActorID:    actorID.String(),
		OccurredAt: now,
	})
	event.Channel = activity.DefaultChannel
	event.DefinitionCode = "component:extend"
	event.Recipients = []string{"ops@example.com"}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected default tenant %s got %s", tenantID, record.TenantID)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user, got %s", record.UserID)
	}
	if record.Verb != activity.VerbComponentExtended || record.ObjectType != activity.ObjectTypeComponent || record.ObjectID != "todo-item" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != activity.DefaultChannel {
		t.Fatalf("expected channel %q got %q", activity.DefaultChannel, record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["session_id"] != "session" || record.Data["cid"] != uint64(4) {
		t.Fatalf("expected metadata passthrough got %+v", record.Data)
	}
	if record.Data["definition_code"] != "component:extend" {
		t.Fatalf("expected definition_code metadata got %v", record.Data["definition_code"])
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "ops@example.com" {
		t.Fatalf("expected recipients metadata got %v", record.Data["recipients"])
	}
}

func TestHookNotifyFallsBackOnInvalidActor(t *testing.T) {
	sink := &recordingSink{}
	fallback := uuid.New()
	hook := usersink.Hook{Sink: sink, DefaultActor: fallback}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbPluginInstalled,
		ActorID:    "not-a-uuid",
		ObjectType: activity.ObjectTypePlugin,
		ObjectID:   "router",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != fallback {
		t.Fatalf("expected fallback actor, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}

	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil sink to be a no-op, got %v", err)
	}
}

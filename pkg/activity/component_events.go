package activity

import (
	"fmt"
	"strings"
	"time"
)

// Verbs emitted by constructors and instances.
const (
	VerbComponentExtended  = "component.extended"
	VerbComponentCreated   = "component.created"
	VerbComponentMounted   = "component.mounted"
	VerbComponentDestroyed = "component.destroyed"
	VerbOptionsMixin       = "options.mixin"
	VerbOptionsResolved    = "options.resolved"
	VerbPluginInstalled    = "plugin.installed"
)

const (
	ObjectTypeComponent = "component"
	ObjectTypePlugin    = "plugin"
)

// ComponentEventInput describes the common fields of constructor, instance
// and plugin events. UID is set for instance events only.
type ComponentEventInput struct {
	Component string
	Plugin    string
	CID       uint64
	SuperCID  uint64
	UID       uint64
	SessionID string

	ActorID    string
	TenantID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildComponentEvent constructs a normalized event for verb.
func BuildComponentEvent(verb string, input ComponentEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["cid"] = input.CID

	switch verb {
	case VerbComponentExtended, VerbOptionsResolved:
		metadata["super_cid"] = input.SuperCID
	}
	if input.UID != 0 {
		metadata["uid"] = input.UID
	}
	if session := strings.TrimSpace(input.SessionID); session != "" {
		metadata["session_id"] = session
	}
	component := strings.TrimSpace(input.Component)
	if component != "" {
		metadata["component"] = component
	}

	objectType := ObjectTypeComponent
	objectID := component
	if verb == VerbPluginInstalled {
		objectType = ObjectTypePlugin
		objectID = strings.TrimSpace(input.Plugin)
		if objectID == "" {
			objectID = "anonymous"
		}
	}
	if objectID == "" {
		objectID = fmt.Sprintf("cid-%d", input.CID)
	}
	if input.UID != 0 {
		objectID = fmt.Sprintf("%s#%d", objectID, input.UID)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

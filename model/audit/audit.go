// Package audit defines the append-only decision log entry.
package audit

import (
	"strings"
	"time"
)

// Entry is one recorded decision.
type Entry struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	OldValues  map[string]interface{} `json:"oldValues,omitempty"`
	NewValues  map[string]interface{} `json:"newValues,omitempty"`
	ActorID    string                 `json:"actorId"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Clone returns a copy with independent value maps.
func (e *Entry) Clone() *Entry {
	ret := *e
	ret.OldValues = cloneValues(e.OldValues)
	ret.NewValues = cloneValues(e.NewValues)
	return &ret
}

// Field exposes filterable attributes.
func (e *Entry) Field(name string) (string, bool) {
	switch name {
	case "EntityType":
		return e.EntityType, true
	case "EntityID":
		return e.EntityID, true
	case "Action":
		return e.Action, true
	}
	return "", false
}

// Key returns the archive-relative location of the entry.
func (e *Entry) Key() string {
	parts := []string{sanitize(e.EntityType), sanitize(e.EntityID),
		e.Timestamp.UTC().Format("20060102T150405.000000000Z") + "-" + sanitize(e.ID) + ".json"}
	return strings.Join(parts, "/")
}

func sanitize(value string) string {
	if value == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(value)
}

func cloneValues(values map[string]interface{}) map[string]interface{} {
	if values == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(values))
	for k, v := range values {
		ret[k] = v
	}
	return ret
}

package model

import (
	"fmt"
	"strings"
)

// Event is a lifecycle trigger.
type Event string

const (
	EventRequest         Event = "request"
	EventConfirm         Event = "confirm"
	EventCancel          Event = "cancel"
	EventStartAttendance Event = "start_attendance"
	EventComplete        Event = "complete"
	EventMarkNoShow      Event = "mark_no_show"
)

var eventAliases = map[string]Event{
	"request":          EventRequest,
	"confirm":          EventConfirm,
	"cancel":           EventCancel,
	"start_attendance": EventStartAttendance,
	"startattendance":  EventStartAttendance,
	"start":            EventStartAttendance,
	"complete":         EventComplete,
	"mark_no_show":     EventMarkNoShow,
	"marknoshow":       EventMarkNoShow,
	"no_show":          EventMarkNoShow,
}

// ParseEvent accepts snake_case and PascalCase names ("MarkNoShow", "mark_no_show").
func ParseEvent(s string) (Event, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if e, ok := eventAliases[key]; ok {
		return e, nil
	}
	return "", &ValidationError{Field: "event", Message: fmt.Sprintf("unknown event %q", s)}
}

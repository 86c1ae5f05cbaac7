package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrCorruptEnum is returned when a stored enum column holds a value outside its fixed set.
var ErrCorruptEnum = errors.New("models: corrupt enum value")

// ErrUnknownEnum is returned when client input names a value outside an enum's set.
var ErrUnknownEnum = errors.New("models: unknown enum value")

type Status uint8

const (
	StatusPending Status = iota
	StatusDone
)

var statusNames = []string{"Pending", "Done"}

type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

var severityNames = []string{"Low", "Medium", "High"}

type ActivityType uint8

const (
	ActivityCreated ActivityType = iota
	ActivityUpdated
	ActivityDeleted
	ActivityCompleted
	ActivityReopened
	ActivityItemAdded
	ActivityItemUpdated
	ActivityItemDeleted
	ActivityItemCompleted
	ActivityItemReopened
)

var activityTypeNames = []string{
	"Created", "Updated", "Deleted", "Completed", "Reopened",
	"ItemAdded", "ItemUpdated", "ItemDeleted", "ItemCompleted", "ItemReopened",
}

type EntityType uint8

const (
	EntityTodoList EntityType = iota
	EntityTodoItem
)

var entityTypeNames = []string{"TodoList", "TodoItem"}

func enumName[E ~uint8](names []string, v E) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("invalid(%d)", uint8(v))
}

func parseEnum[E ~uint8](names []string, kind, s string) (E, error) {
	for i, n := range names {
		if n == s {
			return E(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownEnum, kind, s)
}

func scanEnum[E ~uint8](names []string, kind string, src any) (E, error) {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return 0, fmt.Errorf("%w: %s from %T", ErrCorruptEnum, kind, src)
	}
	e, err := parseEnum[E](names, kind, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrCorruptEnum, kind, s)
	}
	return e, nil
}

func valueEnum[E ~uint8](names []string, kind string, v E) (driver.Value, error) {
	if int(v) >= len(names) {
		return nil, fmt.Errorf("%w: %s %d", ErrUnknownEnum, kind, uint8(v))
	}
	return names[v], nil
}

func ParseStatus(s string) (Status, error) { return parseEnum[Status](statusNames, "status", s) }

func (s Status) String() string                { return enumName(statusNames, s) }
func (s Status) MarshalText() ([]byte, error)  { return marshalText(statusNames, "status", s) }
func (s *Status) UnmarshalText(b []byte) error { return unmarshalText(statusNames, "status", b, s) }
func (s Status) Value() (driver.Value, error)  { return valueEnum(statusNames, "status", s) }
func (s *Status) Scan(src any) (err error) {
	*s, err = scanEnum[Status](statusNames, "status", src)
	return err
}

func ParseSeverity(s string) (Severity, error) {
	return parseEnum[Severity](severityNames, "severity", s)
}

func (s Severity) String() string                { return enumName(severityNames, s) }
func (s Severity) MarshalText() ([]byte, error)  { return marshalText(severityNames, "severity", s) }
func (s *Severity) UnmarshalText(b []byte) error { return unmarshalText(severityNames, "severity", b, s) }
func (s Severity) Value() (driver.Value, error)  { return valueEnum(severityNames, "severity", s) }
func (s *Severity) Scan(src any) (err error) {
	*s, err = scanEnum[Severity](severityNames, "severity", src)
	return err
}

func (a ActivityType) String() string { return enumName(activityTypeNames, a) }
func (a ActivityType) MarshalText() ([]byte, error) {
	return marshalText(activityTypeNames, "activity type", a)
}
func (a *ActivityType) UnmarshalText(b []byte) error {
	return unmarshalText(activityTypeNames, "activity type", b, a)
}
func (a ActivityType) Value() (driver.Value, error) {
	return valueEnum(activityTypeNames, "activity type", a)
}
func (a *ActivityType) Scan(src any) (err error) {
	*a, err = scanEnum[ActivityType](activityTypeNames, "activity type", src)
	return err
}

func (e EntityType) String() string { return enumName(entityTypeNames, e) }
func (e EntityType) MarshalText() ([]byte, error) {
	return marshalText(entityTypeNames, "entity type", e)
}
func (e *EntityType) UnmarshalText(b []byte) error {
	return unmarshalText(entityTypeNames, "entity type", b, e)
}
func (e EntityType) Value() (driver.Value, error) {
	return valueEnum(entityTypeNames, "entity type", e)
}
func (e *EntityType) Scan(src any) (err error) {
	*e, err = scanEnum[EntityType](entityTypeNames, "entity type", src)
	return err
}

// Noun is the lower-case display name used in activity messages.
func (e EntityType) Noun() string {
	switch e {
	case EntityTodoList:
		return "todo list"
	case EntityTodoItem:
		return "todo item"
	default:
		return "entity"
	}
}

func marshalText[E ~uint8](names []string, kind string, v E) ([]byte, error) {
	if int(v) >= len(names) {
		return nil, fmt.Errorf("%w: %s %d", ErrUnknownEnum, kind, uint8(v))
	}
	return []byte(names[v]), nil
}

func unmarshalText[E ~uint8](names []string, kind string, b []byte, dst *E) error {
	v, err := parseEnum[E](names, kind, string(b))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (s Status) Valid() bool   { return int(s) < len(statusNames) }
func (s Severity) Valid() bool { return int(s) < len(severityNames) }

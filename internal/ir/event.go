package ir

import (
	"sort"
)

// Event is a named instrumentation point. Firing an event produces an
// EventTracingStmt that can be placed in a process like any other statement;
// the extraction pass later recovers, for each fire site, the condition under
// which it executes.
type Event struct {
	name string
}

// NewEvent returns an event with the given name.
func NewEvent(name string) (*Event, error) {
	if name == "" {
		return nil, NewUserError("event name must not be empty")
	}
	return &Event{name: name}, nil
}

// Name returns the event name.
func (e *Event) Name() string { return e.name }

// Fire builds a tracing statement carrying the given payload. Fields attach
// in sorted name order so the statement's shape does not depend on map
// iteration.
func (e *Event) Fire(fields map[string]Value) (*EventTracingStmt, error) {
	stmt, err := NewEventTracingStmt(e.name)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := stmt.SetField(name, fields[name]); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// EventInfo is the extracted description of one event fire site: where it
// sits, what it carries, and the single-bit condition under which it fires.
// A nil Condition means the site fires unconditionally within its process.
type EventInfo struct {
	Name          string
	Transaction   string
	Action        EventActionType
	Combinational bool
	Fields        map[string]Value
	Condition     Value
}

// Package model defines the core data structures for logrelay.
package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of an event.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Field is a single named value attached to an event. Values are restricted
// to string, int64, float64, bool, nil, map[string]any and []any.
type Field struct {
	Key   string
	Value any
}

// Event is one structured log record: an ordered list of fields with a
// severity and message. Events are built by a producer and become immutable
// once handed to the delivery queue; anything that needs to hold on to an
// event past that point works on a Clone.
type Event struct {
	ID        string
	Timestamp time.Time
	Level     Level
	Message   string

	fields []Field
	index  map[string]int
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(level Level, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
}

// Set adds or overwrites a field, preserving first-insertion order for
// existing keys. Must only be called before the event is enqueued.
func (e *Event) Set(key string, value any) *Event {
	if e.index == nil {
		e.index = make(map[string]int, 8)
	}
	if i, ok := e.index[key]; ok {
		e.fields[i].Value = value
		return e
	}
	e.index[key] = len(e.fields)
	e.fields = append(e.fields, Field{Key: key, Value: value})
	return e
}

// Get returns the value for key and whether it was present.
func (e *Event) Get(key string) (any, bool) {
	i, ok := e.index[key]
	if !ok {
		return nil, false
	}
	return e.fields[i].Value, true
}

// Rename changes the key of a field in place, keeping its position.
// It reports whether the field existed.
func (e *Event) Rename(from, to string) bool {
	i, ok := e.index[from]
	if !ok {
		return false
	}
	delete(e.index, from)
	e.fields[i].Key = to
	e.index[to] = i
	return true
}

// Fields returns the ordered field list. The returned slice is shared with
// the event and must not be mutated.
func (e *Event) Fields() []Field {
	return e.fields
}

// Len returns the number of fields.
func (e *Event) Len() int {
	return len(e.fields)
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := &Event{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Message:   e.Message,
	}
	if len(e.fields) > 0 {
		c.fields = make([]Field, len(e.fields))
		c.index = make(map[string]int, len(e.fields))
		for i, f := range e.fields {
			c.fields[i] = Field{Key: f.Key, Value: cloneValue(f.Value)}
			c.index[f.Key] = i
		}
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// MarshalJSON renders the event as a single JSON object with the well-known
// keys first, then the custom fields in insertion order.
func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair(&buf, "id", e.ID)
	buf.WriteByte(',')
	writePair(&buf, "timestamp", e.Timestamp.Format(time.RFC3339Nano))
	buf.WriteByte(',')
	writePair(&buf, "level", e.Level.String())
	buf.WriteByte(',')
	writePair(&buf, "message", e.Message)
	for _, f := range e.fields {
		buf.WriteByte(',')
		if err := writePair(&buf, f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writePair(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// Batch is an ordered sequence of events collected between flushes. It is
// owned exclusively by the batcher until handed to the flush callback.
type Batch []*Event

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := NewEvent(LevelInfo, "a")
	b := NewEvent(LevelInfo, "b")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs not unique: %q vs %q", a.ID, b.ID)
	}
	if a.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEvent_SetPreservesInsertionOrder(t *testing.T) {
	e := NewEvent(LevelInfo, "m")
	e.Set("b", 1).Set("a", 2).Set("c", 3)
	e.Set("b", 10) // overwrite keeps position

	fields := e.Fields()
	wantKeys := []string{"b", "a", "c"}
	if len(fields) != len(wantKeys) {
		t.Fatalf("field count = %d, want %d", len(fields), len(wantKeys))
	}
	for i, k := range wantKeys {
		if fields[i].Key != k {
			t.Errorf("field %d = %s, want %s", i, fields[i].Key, k)
		}
	}
	if v, _ := e.Get("b"); v != 10 {
		t.Errorf("Get(b) = %v, want 10", v)
	}
}

func TestEvent_Rename(t *testing.T) {
	e := NewEvent(LevelInfo, "m")
	e.Set("usr", "ada").Set("path", "/")

	if !e.Rename("usr", "user") {
		t.Fatal("Rename(usr) = false, want true")
	}
	if e.Rename("ghost", "x") {
		t.Error("Rename of missing key should report false")
	}
	if e.Fields()[0].Key != "user" {
		t.Error("renamed field should keep its position")
	}
	if v, _ := e.Get("user"); v != "ada" {
		t.Errorf("Get(user) = %v, want ada", v)
	}
}

func TestEvent_CloneIsDeep(t *testing.T) {
	e := NewEvent(LevelWarn, "m")
	e.Set("tags", map[string]any{"env": "prod"})
	e.Set("list", []any{"a"})

	c := e.Clone()
	c.Set("tags", map[string]any{"env": "dev"})
	if v, _ := e.Get("tags"); v.(map[string]any)["env"] != "prod" {
		t.Error("clone Set leaked into the original")
	}

	// Nested mutation through the clone must not reach the original either.
	cv, _ := c.Get("list")
	cv.([]any)[0] = "mutated"
	ov, _ := e.Get("list")
	if ov.([]any)[0] != "a" {
		t.Error("nested value shared between clone and original")
	}

	if c.ID != e.ID || c.Level != e.Level || c.Message != e.Message {
		t.Error("clone should copy identity fields verbatim")
	}
}

func TestEvent_MarshalJSON_KeyOrder(t *testing.T) {
	e := NewEvent(LevelError, "boom")
	e.Set("zeta", 1).Set("alpha", 2)

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)

	// Well-known keys first, then custom fields in insertion order.
	order := []string{`"id"`, `"timestamp"`, `"level"`, `"message"`, `"zeta"`, `"alpha"`}
	last := -1
	for _, k := range order {
		i := strings.Index(s, k)
		if i < 0 {
			t.Fatalf("key %s missing from %s", k, s)
		}
		if i < last {
			t.Errorf("key %s out of order in %s", k, s)
		}
		last = i
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["level"] != "error" || decoded["message"] != "boom" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestEvent_GetMissing(t *testing.T) {
	e := NewEvent(LevelInfo, "m")
	if _, ok := e.Get("nope"); ok {
		t.Error("Get on missing key should report false")
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

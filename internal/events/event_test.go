package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	e := New(KindWarned, -100)
	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", e.ID, err)
	}
	if e.Kind != KindWarned || e.ChatID != -100 {
		t.Errorf("New() = %+v", e)
	}
	if e.At.IsZero() {
		t.Error("At not set")
	}
	if New(KindWarned, -100).ID == e.ID {
		t.Error("ids should be unique")
	}
}

func TestEvent_JSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(New(KindVideoRemoved, -5))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, k := range []string{"user_id", "username", "reason", "count"} {
		if _, ok := m[k]; ok {
			t.Errorf("empty field %q should be omitted", k)
		}
	}
	if m["kind"] != "video_removed" {
		t.Errorf("kind = %v", m["kind"])
	}
}

func TestFanout(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	f := Fanout{a, Discard, b}

	f.Emit(context.Background(), New(KindBanned, 1))
	f.Emit(context.Background(), New(KindDeleted, 1))

	for name, r := range map[string]*Recorder{"a": a, "b": b} {
		kinds := r.Kinds()
		if len(kinds) != 2 || kinds[0] != KindBanned || kinds[1] != KindDeleted {
			t.Errorf("recorder %s kinds = %v", name, kinds)
		}
	}
}

package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEmitRejectsUnknownEvent(t *testing.T) {
	before := TotalCount()
	if _, err := Emit("info", "scene.started", "", nil); err == nil {
		t.Fatal("expected error for unknown event")
	}
	if TotalCount() != before {
		t.Errorf("rejected event was counted")
	}
}

func TestEmitLiftsAgent(t *testing.T) {
	Clear()

	b, err := Emit("info", "agent.spawned", "", map[string]interface{}{"agent": "a-1", "graph": "guard"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if decoded["agent"] != "a-1" {
		t.Errorf("expected agent a-1 in JSON, got %v", decoded["agent"])
	}
	if decoded["event"] != "agent.spawned" {
		t.Errorf("expected event name in JSON, got %v", decoded["event"])
	}
}

func TestForAgent(t *testing.T) {
	Clear()

	Emit("info", "node.entered", "", map[string]interface{}{"agent": "a-1", "node": 1})
	Emit("info", "node.entered", "", map[string]interface{}{"agent": "a-2", "node": 1})
	Emit("info", "transition.fired", "", map[string]interface{}{"agent": "a-1", "transition": 0})
	Emit("info", "system.startup", "", nil)

	got := ForAgent("a-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 events for a-1, got %d", len(got))
	}
	if got[0].Name != "node.entered" || got[1].Name != "transition.fired" {
		t.Errorf("unexpected order: %s, %s", got[0].Name, got[1].Name)
	}
}

func TestCounts(t *testing.T) {
	before := Counts()["loop.started"]
	total := TotalCount()

	Emit("info", "loop.started", "", nil)
	Emit("info", "loop.started", "", nil)

	if got := Counts()["loop.started"] - before; got != 2 {
		t.Errorf("expected 2 loop.started, got %d", got)
	}
	if got := TotalCount() - total; got != 2 {
		t.Errorf("expected total to grow by 2, got %d", got)
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		rb.Add(Event{Name: name})
	}
	snap := rb.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	if snap[0].Name != "b" || snap[2].Name != "d" {
		t.Errorf("unexpected order: %v", snap)
	}

	kept := rb.Last(0, func(e Event) bool { return e.Name != "c" })
	if len(kept) != 2 || kept[0].Name != "b" || kept[1].Name != "d" {
		t.Errorf("unexpected filtered events: %v", kept)
	}
	if last := rb.Last(1, nil); len(last) != 1 || last[0].Name != "d" {
		t.Errorf("unexpected last event: %v", last)
	}

	rb.Clear()
	if len(rb.Snapshot()) != 0 {
		t.Error("expected empty buffer after Clear")
	}
	rb.Add(Event{Name: "e"})
	if snap := rb.Snapshot(); len(snap) != 1 || snap[0].Name != "e" {
		t.Errorf("unexpected events after Clear: %v", snap)
	}
}

type appended struct {
	event, agent string
}

type fakeSink struct {
	mu   sync.Mutex
	rows []appended
	err  error
}

func (s *fakeSink) Append(_ time.Time, _, event, _ string, _ map[string]interface{}, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, appended{event, agentID})
	return nil
}

func TestSinkReceivesEvents(t *testing.T) {
	Clear()
	sink := &fakeSink{}
	SetSink(sink)
	defer SetSink(nil)

	Emit("info", "agent.spawned", "", map[string]interface{}{"agent": "a-1"})
	Emit("info", "system.startup", "", nil)

	want := []appended{{"agent.spawned", "a-1"}, {"system.startup", ""}}
	if len(sink.rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(sink.rows))
	}
	for i := range want {
		if sink.rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, sink.rows[i], want[i])
		}
	}
}

func TestSinkFailureReportedOnce(t *testing.T) {
	Clear()
	SetSink(&fakeSink{err: errors.New("connection refused")})
	defer SetSink(nil)

	Emit("info", "system.startup", "", nil)
	Emit("info", "system.startup", "", nil)

	failures := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 persistence failure event, got %d", failures)
	}
}

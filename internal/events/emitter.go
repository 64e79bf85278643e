package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one emitted domain event.
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Agent     string                 `json:"agent,omitempty"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var buffer = NewRingBuffer(256)

var (
	total    atomic.Int64
	countsMu sync.Mutex
	counts   = make(map[string]int64)
)

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Emit records an allow-listed event: buffered, counted, fanned out to
// subscribers and persisted when a sink is set. A string "agent" field is
// also carried on Event.Agent. The JSON encoding is returned.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	now := time.Now()
	e := Event{
		Timestamp: stamp(now),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}
	e.Agent, _ = fields["agent"].(string)

	buffer.Add(e)
	tally(name)
	broadcast(e)
	store.write(now.UTC(), e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", name, err)
	}
	return b, nil
}

func tally(name string) {
	total.Add(1)
	countsMu.Lock()
	counts[name]++
	countsMu.Unlock()
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() int64 {
	return total.Load()
}

// Counts returns a copy of the per-name emit counters.
func Counts() map[string]int64 {
	countsMu.Lock()
	defer countsMu.Unlock()
	out := make(map[string]int64, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}

// Snapshot returns every buffered event, oldest first.
func Snapshot() []Event {
	return buffer.Snapshot()
}

// ForAgent returns the buffered events of one agent, oldest first.
func ForAgent(agent string) []Event {
	return Recent(agent, 0)
}

// Recent returns the newest n buffered events, oldest first, limited to
// agent when it is set. n <= 0 means all.
func Recent(agent string, n int) []Event {
	if agent == "" {
		return buffer.Last(n, nil)
	}
	return buffer.Last(n, func(e Event) bool { return e.Agent == agent })
}

// Clear empties the buffer.
func Clear() {
	buffer.Clear()
}

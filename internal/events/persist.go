package events

import (
	"sync"
	"time"
)

// Sink persists emitted events. *postgres.Client implements it.
type Sink interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, agentID string) error
}

// persister writes to the current sink and reports only the first failure
// after each SetSink.
type persister struct {
	mu     sync.RWMutex
	sink   Sink
	failed bool
}

var store persister

// SetSink enables persistence of every emitted event. nil disables it.
func SetSink(s Sink) {
	store.mu.Lock()
	store.sink = s
	store.failed = false
	store.mu.Unlock()
}

// write appends e. The failure notice goes straight to the buffer: routing
// it through Emit would hit the failing sink again.
func (p *persister) write(ts time.Time, e Event) {
	p.mu.RLock()
	sink := p.sink
	p.mu.RUnlock()
	if sink == nil {
		return
	}

	err := sink.Append(ts, e.Level, e.Name, e.Message, e.Fields, e.Agent)
	if err == nil {
		return
	}

	p.mu.Lock()
	first := !p.failed
	p.failed = true
	p.mu.Unlock()
	if first {
		buffer.Add(Event{
			Timestamp: stamp(time.Now()),
			Level:     "error",
			Name:      "system.error",
			Message:   "event persistence failed",
			Fields:    map[string]interface{}{"error": err.Error()},
		})
	}
}

package events

import "sync"

// RingBuffer keeps the last size events in memory.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	next   int // slot the next Add writes
	count  int
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{events: make([]Event, size)}
}

func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.events[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.events)
	if rb.count < len(rb.events) {
		rb.count++
	}
}

// Snapshot returns the buffered events, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	return rb.Last(0, nil)
}

// Last returns up to n of the newest events that keep accepts, oldest
// first. n <= 0 means no limit and a nil keep accepts everything.
func (rb *RingBuffer) Last(n int, keep func(Event) bool) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	size := len(rb.events)
	if n <= 0 || n > rb.count {
		n = rb.count
	}
	// Walk newest to oldest, then reverse.
	out := make([]Event, 0, n)
	for i := 1; i <= rb.count && len(out) < n; i++ {
		e := rb.events[(rb.next-i+size)%size]
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Clear drops every buffered event.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.events = make([]Event, len(rb.events))
	rb.next = 0
	rb.count = 0
}

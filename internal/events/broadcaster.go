package events

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives live events. Its buffer absorbs bursts; events that
// do not fit are dropped for that subscriber only.
type Subscriber chan Event

const subscriberBuffer = 64

// broadcaster fans emitted events out to live consumers such as WebSocket
// clients, the MQTT bridge and the halt alerter.
type broadcaster struct {
	mu      sync.RWMutex
	subs    map[Subscriber]func(Event) bool
	dropped atomic.Int64
}

var hub = &broadcaster{subs: make(map[Subscriber]func(Event) bool)}

// Subscribe returns a channel receiving every event.
func Subscribe() Subscriber {
	return SubscribeFunc(nil)
}

// SubscribeAgent returns a channel receiving only agent's events.
func SubscribeAgent(agent string) Subscriber {
	if agent == "" {
		return Subscribe()
	}
	return SubscribeFunc(func(e Event) bool { return e.Agent == agent })
}

// SubscribeFunc returns a channel receiving the events keep accepts. keep
// runs on the emitting goroutine and must not block.
func SubscribeFunc(keep func(Event) bool) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	hub.mu.Lock()
	hub.subs[ch] = keep
	hub.mu.Unlock()
	return ch
}

// Unsubscribe removes sub and closes it. It is a no-op for a channel
// already closed by CloseAllSubscribers.
func Unsubscribe(sub Subscriber) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.subs[sub]; !ok {
		return
	}
	delete(hub.subs, sub)
	close(sub)
}

// CloseAllSubscribers closes every subscriber. Used on shutdown.
func CloseAllSubscribers() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for sub := range hub.subs {
		close(sub)
	}
	hub.subs = make(map[Subscriber]func(Event) bool)
}

func broadcast(e Event) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for sub, keep := range hub.subs {
		if keep != nil && !keep(e) {
			continue
		}
		select {
		case sub <- e:
		default:
			hub.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subs)
}

// DroppedCount returns how many deliveries were skipped because a
// subscriber was full.
func DroppedCount() int64 {
	return hub.dropped.Load()
}

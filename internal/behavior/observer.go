package behavior

import "github.com/AaronLay10/behaviorgraph/internal/events"

// Observer receives interpreter events. Names are the event names from the
// events allow-list; fields always carry "agent".
type Observer interface {
	Observe(name string, fields map[string]interface{})
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(name string, fields map[string]interface{})

func (f ObserverFunc) Observe(name string, fields map[string]interface{}) {
	f(name, fields)
}

// EventsObserver forwards to events.Emit. agent.halted is emitted at error
// level, everything else at info.
type EventsObserver struct{}

func (EventsObserver) Observe(name string, fields map[string]interface{}) {
	level := "info"
	msg := ""
	if name == "agent.halted" {
		level = "error"
		msg = "provider missing"
	}
	events.Emit(level, name, msg, fields)
}

type record struct {
	name   string
	fields map[string]interface{}
}

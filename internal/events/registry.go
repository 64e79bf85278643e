package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// node
	"node.entered": {},

	// transition
	"transition.fired": {},

	// loop
	"loop.started": {},
	"loop.stopped": {},

	// agent
	"agent.spawned":   {},
	"agent.finished":  {},
	"agent.halted":    {},
	"agent.despawned": {},

	// graph
	"graph.loaded": {},
	"graph.stored": {},

	// operator
	"operator.reset":  {},
	"operator.jump":   {},
	"operator.detach": {},
	"operator.attach": {},
	"operator.queued": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate rejects event names outside the allow-list.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}

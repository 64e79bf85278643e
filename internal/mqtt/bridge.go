package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/behaviorgraph/internal/command"
	"github.com/AaronLay10/behaviorgraph/internal/events"
)

// CommandSource tags operator events triggered over MQTT.
const CommandSource = "mqtt"

// Bridge publishes the event stream to the broker and applies commands
// received from it.
type Bridge struct {
	conn     Conn
	topics   Topics
	registry *AgentRegistry
	ctrl     command.Controller
	log      *slog.Logger
}

// NewBridge creates a bridge. ctrl may be nil for a publish-only bridge.
func NewBridge(conn Conn, topics Topics, ctrl command.Controller, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		conn:     conn,
		topics:   topics,
		registry: NewAgentRegistry(),
		ctrl:     ctrl,
		log:      log,
	}
}

// Registry returns the set of agents the bridge has announced.
func (b *Bridge) Registry() *AgentRegistry {
	return b.registry
}

// Start subscribes to the command topic of every agent.
func (b *Bridge) Start() error {
	if b.ctrl == nil {
		return nil
	}
	return b.conn.Subscribe(b.topics.CommandFilter(), b.handleCommand)
}

// Run forwards events until ctx is cancelled or the subscription closes.
func (b *Bridge) Run(ctx context.Context) error {
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub:
			if !ok {
				return nil
			}
			b.Forward(e)
		}
	}
}

// ServiceStatus is the retained payload on the daemon presence topic.
type ServiceStatus struct {
	Service string `json:"service"`
	State   string `json:"state"`
}

// ServiceStatusPayload encodes a presence record. It is also used as the
// client's last will.
func ServiceStatusPayload(service, state string) []byte {
	b, _ := json.Marshal(ServiceStatus{Service: service, State: state})
	return b
}

// SetServiceState publishes the daemon's retained presence.
func (b *Bridge) SetServiceState(service, state string) {
	b.publish(b.topics.ServiceStatus(), ServiceStatus{Service: service, State: state}, true)
}

// Announce registers an agent and publishes its retained online status.
// Agents spawned while the bridge is running are announced automatically.
func (b *Bridge) Announce(id, graph string, since time.Time) {
	b.registry.Register(&RegisteredAgent{
		ID:           id,
		Graph:        graph,
		StatusTopic:  b.topics.Status(id),
		CommandTopic: b.topics.Command(id),
		Since:        since,
		State:        StateOnline,
	})
	b.publishStatus(id)
}

// Forward publishes e on its agent's events topic and keeps presence in
// step with the agent lifecycle.
func (b *Bridge) Forward(e events.Event) {
	switch e.Name {
	case "agent.spawned":
		graph, _ := e.Fields["graph"].(string)
		since, err := time.Parse(time.RFC3339Nano, e.Timestamp)
		if err != nil {
			since = time.Now().UTC()
		}
		b.Announce(e.Agent, graph, since)
	case "agent.finished":
		b.setState(e.Agent, StateFinished)
	case "agent.halted":
		b.setState(e.Agent, StateHalted)
	case "operator.reset", "operator.jump":
		b.setState(e.Agent, StateOnline)
	case "agent.despawned":
		b.registry.Unregister(e.Agent)
		b.publish(b.topics.Status(e.Agent), &RegisteredAgent{ID: e.Agent, State: StateOffline}, true)
	}

	b.publish(b.topics.Events(e.Agent), e, false)
}

func (b *Bridge) setState(id, state string) {
	if b.registry.SetState(id, state) {
		b.publishStatus(id)
	}
}

func (b *Bridge) publishStatus(id string) {
	if a := b.registry.Get(id); a != nil {
		b.publish(a.StatusTopic, a, true)
	}
}

// publish failures are logged only. Emitting an event here would be
// forwarded back through the bridge.
func (b *Bridge) publish(topic string, v interface{}, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.Error("mqtt marshal failed", "topic", topic, "error", err)
		return
	}
	if err := b.conn.Publish(topic, payload, retained); err != nil {
		b.log.Warn("mqtt publish failed", "topic", topic, "error", err)
	}
}

func (b *Bridge) handleCommand(_ paho.Client, msg paho.Message) {
	agent, ok := b.topics.AgentFromCommand(msg.Topic())
	if !ok {
		b.log.Warn("mqtt command on unexpected topic", "topic", msg.Topic())
		return
	}

	cmd, err := command.Parse(msg.Payload())
	if err == nil {
		err = b.Execute(agent, cmd)
	}
	if err != nil {
		b.log.Warn("mqtt command rejected", "agent", agent, "error", err)
		events.Emit("warning", "system.error", "mqtt command rejected", map[string]interface{}{
			"agent": agent,
			"topic": msg.Topic(),
			"error": err.Error(),
		})
	}
}

// Execute validates cmd against the registry and applies it to agent. The
// topic names the agent, so any agent field in the payload is ignored.
func (b *Bridge) Execute(agent string, cmd *command.Command) error {
	if b.ctrl == nil {
		return fmt.Errorf("bridge is publish-only")
	}
	if err := b.registry.ValidateCommand(agent, cmd); err != nil {
		return err
	}
	cmd.Agent = agent
	return command.Apply(b.ctrl, cmd, CommandSource)
}

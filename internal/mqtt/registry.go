package mqtt

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AaronLay10/behaviorgraph/internal/command"
)

// RegisteredAgent is the bridge's view of a live agent.
type RegisteredAgent struct {
	ID           string    `json:"id"`
	Graph        string    `json:"graph"`
	StatusTopic  string    `json:"status_topic"`
	CommandTopic string    `json:"command_topic"`
	Since        time.Time `json:"since"`
	State        string    `json:"state"`
}

// Presence states published on the status topic.
const (
	StateOnline   = "online"
	StateFinished = "finished"
	StateHalted   = "halted"
	StateOffline  = "offline"
)

// AgentRegistry tracks which agents accept commands over MQTT.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*RegisteredAgent
}

// NewAgentRegistry creates a new empty agent registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		agents: make(map[string]*RegisteredAgent),
	}
}

// Register adds or updates an agent in the registry.
func (r *AgentRegistry) Register(a *RegisteredAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *a
	r.agents[a.ID] = &cpy
}

// Unregister removes an agent from the registry.
func (r *AgentRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// SetState updates the presence state of a registered agent. It reports
// false if the agent is unknown.
func (r *AgentRegistry) SetState(id, state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return false
	}
	a.State = state
	return true
}

// Get returns a copy of the agent, or nil if not found.
func (r *AgentRegistry) Get(id string) *RegisteredAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[id]; ok {
		cpy := *a
		return &cpy
	}
	return nil
}

// Exists returns true if the agent is registered.
func (r *AgentRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[id]
	return ok
}

// GetCommandTopic returns the command topic for an agent, or empty string if not found.
func (r *AgentRegistry) GetCommandTopic(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[id]; ok {
		return a.CommandTopic
	}
	return ""
}

// ValidateCommand checks that the agent is registered and the command is
// well formed.
func (r *AgentRegistry) ValidateCommand(id string, cmd *command.Command) error {
	if !r.Exists(id) {
		return fmt.Errorf("agent not registered: %s", id)
	}
	return cmd.Validate()
}

// All returns a copy of every registered agent, oldest first.
func (r *AgentRegistry) All() []*RegisteredAgent {
	r.mu.RLock()
	result := make([]*RegisteredAgent, 0, len(r.agents))
	for _, a := range r.agents {
		cpy := *a
		result = append(result, &cpy)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Since.Equal(result[j].Since) {
			return result[i].Since.Before(result[j].Since)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Clear removes all agents from the registry.
func (r *AgentRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*RegisteredAgent)
}

package mqtt

import "strings"

// Topics builds the topic layout under a common prefix:
//
//	<prefix>/<agent>/events   every event tagged with the agent
//	<prefix>/<agent>/status   retained presence record
//	<prefix>/<agent>/command  operator commands in
//	<prefix>/system/events    events without an agent
//	<prefix>/system/status    retained daemon presence, also the last will
type Topics struct {
	Prefix string
}

const systemSegment = "system"

func (t Topics) join(parts ...string) string {
	return strings.Join(append([]string{t.Prefix}, parts...), "/")
}

func (t Topics) Events(agent string) string {
	if agent == "" {
		agent = systemSegment
	}
	return t.join(agent, "events")
}

func (t Topics) Status(agent string) string  { return t.join(agent, "status") }
func (t Topics) Command(agent string) string { return t.join(agent, "command") }

// ServiceStatus is the daemon's own presence topic.
func (t Topics) ServiceStatus() string { return t.join(systemSegment, "status") }

// CommandFilter matches the command topic of every agent.
func (t Topics) CommandFilter() string { return t.join("+", "command") }

// AgentFromCommand extracts the agent ID from a command topic.
func (t Topics) AgentFromCommand(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return "", false
	}
	agent, ok := strings.CutSuffix(rest, "/command")
	if !ok || agent == "" || strings.Contains(agent, "/") || agent == systemSegment {
		return "", false
	}
	return agent, true
}

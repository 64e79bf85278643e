package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// External dependencies reported by /ready, /metrics and the alert monitor.
const (
	DepMQTT     = "mqtt"
	DepPostgres = "postgres"
	DepCommands = "commands"
)

var dependencyNames = []string{DepMQTT, DepPostgres, DepCommands}

// Dependency is the last known state of one external service. An optional
// dependency is one the daemon runs fine without, usually because it is
// disabled in the config.
type Dependency struct {
	Connected bool
	Optional  bool
}

// healthy reports whether d keeps the daemon ready.
func (d Dependency) healthy() bool {
	return d.Connected || d.Optional
}

type readinessState struct {
	mu         sync.RWMutex
	worldReady bool
	deps       map[string]Dependency
}

var readiness = newReadiness()

func newReadiness() *readinessState {
	r := &readinessState{deps: make(map[string]Dependency, len(dependencyNames))}
	for _, name := range dependencyNames {
		r.deps[name] = Dependency{Optional: true}
	}
	return r
}

// SetWorldReady marks whether graphs are loaded and agents are ticking.
func SetWorldReady(ready bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.worldReady = ready
}

// SetDependencyState records the state of a named dependency.
func SetDependencyState(name string, connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.deps[name] = Dependency{Connected: connected, Optional: optional}
}

// snapshot copies the current state under the lock.
func (r *readinessState) snapshot() (bool, map[string]Dependency) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deps := make(map[string]Dependency, len(r.deps))
	for k, v := range r.deps {
		deps[k] = v
	}
	return r.worldReady, deps
}

// CheckStatus is one dependency in a readiness response.
type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckStatus `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

func checkStatus(d Dependency) CheckStatus {
	switch {
	case d.Connected:
		return CheckStatus{Status: "ok", Optional: d.Optional}
	case d.Optional:
		return CheckStatus{Status: "unavailable", Optional: true}
	default:
		return CheckStatus{Status: "not_ready"}
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	worldReady, deps := readiness.snapshot()

	resp := ReadinessResponse{
		Ready:  true,
		Checks: map[string]CheckStatus{"world": checkStatus(Dependency{Connected: worldReady})},
	}
	var reasons []string
	if !worldReady {
		reasons = append(reasons, "world not ready")
	}
	for _, name := range dependencyNames {
		d := deps[name]
		resp.Checks[name] = checkStatus(d)
		if !d.healthy() {
			reasons = append(reasons, name+" not ready")
		}
	}
	resp.Ready = len(reasons) == 0
	resp.NotReadyMsg = strings.Join(reasons, "; ")

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

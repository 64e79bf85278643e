package api

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/AaronLay10/behaviorgraph/internal/events"
	"github.com/AaronLay10/behaviorgraph/internal/version"
)

// Metrics state
var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu          sync.RWMutex
	startTime   time.Time
	serviceName string
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetServiceName sets the service label on every metric.
func SetServiceName(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.serviceName = name
}

// GetServiceName returns the current service name.
func GetServiceName() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.serviceName
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// agentCounts splits the population by interpreter state.
func agentCounts() (running, finished, halted int) {
	if agentWorld == nil {
		return 0, 0, 0
	}
	for _, a := range agentWorld.Agents() {
		switch {
		case a.Interp.Halted():
			halted++
		case a.Interp.Finished():
			finished++
		default:
			running++
		}
	}
	return running, finished, halted
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	metricsState.mu.RLock()
	startTime := metricsState.startTime
	serviceName := metricsState.serviceName
	metricsState.mu.RUnlock()

	worldReady, deps := readiness.snapshot()

	running, finished, halted := agentCounts()
	graphs := 0
	if agentWorld != nil {
		graphs = len(agentWorld.GraphNames())
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	header := func(name, mtype, help string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
	}
	sample := func(name, labels string, value interface{}) {
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}
	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		header(name, mtype, help)
		sample(name, labels, value)
	}

	labels := fmt.Sprintf(`service="%s",instance="%s",version="%s"`, serviceName, hostname, version.Version)

	writeMetric("behavior_uptime_seconds", "gauge",
		"Number of seconds since the daemon started", time.Since(startTime).Seconds(), labels)

	writeMetric("behavior_world_ready", "gauge",
		"Whether the world is ticking (1) or not (0)", boolGauge(worldReady), labels)

	header("behavior_agents", "gauge", "Number of agents by interpreter state")
	sample("behavior_agents", labels+`,state="running"`, running)
	sample("behavior_agents", labels+`,state="finished"`, finished)
	sample("behavior_agents", labels+`,state="halted"`, halted)

	writeMetric("behavior_graphs_loaded", "gauge",
		"Number of graph definitions available for spawning", graphs, labels)

	writeMetric("behavior_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)

	counts := events.Counts()
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	header("behavior_events_by_name_total", "counter", "Events emitted since startup by event name")
	for _, n := range names {
		sample("behavior_events_by_name_total", labels+fmt.Sprintf(`,event="%s"`, n), counts[n])
	}

	header("behavior_dependency_connected", "gauge", "Whether an external dependency is connected (1) or not (0)")
	for _, name := range dependencyNames {
		sample("behavior_dependency_connected", labels+fmt.Sprintf(`,dependency="%s"`, name), boolGauge(deps[name].Connected))
	}

	writeMetric("behavior_ws_clients", "gauge",
		"Number of active event subscribers", events.SubscriberCount(), labels)
}

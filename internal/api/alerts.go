package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/AaronLay10/behaviorgraph/internal/events"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event names. Dependency outages use "<dependency>_unavailable".
const (
	AlertAgentHalted = "agent_halted"
	alertSuffixDown  = "_unavailable"
)

// AlertPayload is the JSON body posted to the webhook.
type AlertPayload struct {
	Service   string                 `json:"service"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// outage tracks how long a dependency has been down and whether that was
// already reported.
type outage struct {
	since   time.Time
	alerted bool
}

var (
	alertMu      sync.Mutex
	alertWebhook string
	alertClient  = &http.Client{Timeout: 10 * time.Second}

	// alertDelays is how long a dependency must stay down before alerting.
	alertDelays = map[string]time.Duration{
		DepMQTT:     30 * time.Second,
		DepPostgres: 5 * time.Second,
		DepCommands: 30 * time.Second,
	}
	outages = map[string]*outage{}
)

// InitAlerts reads BEHAVIOR_ALERT_WEBHOOK_URL and the per-dependency
// BEHAVIOR_<NAME>_ALERT_DELAY overrides.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertWebhook = os.Getenv("BEHAVIOR_ALERT_WEBHOOK_URL")
	for _, name := range dependencyNames {
		env := "BEHAVIOR_" + strings.ToUpper(name) + "_ALERT_DELAY"
		if v := os.Getenv(env); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				slog.Warn("ignoring invalid alert delay", "env", env, "value", v)
				continue
			}
			alertDelays[name] = d
		}
	}
	outages = map[string]*outage{}

	if alertWebhook != "" {
		slog.Info("alerts enabled", "delays", alertDelays)
	}
}

// SendAlert posts to the webhook in the background, or logs the alert when
// no webhook is configured.
func SendAlert(event, severity, message string, details map[string]interface{}) {
	alertMu.Lock()
	url := alertWebhook
	alertMu.Unlock()

	if url == "" {
		slog.Warn("alert", "event", event, "severity", severity, "msg", message, "details", details)
		return
	}

	service := GetServiceName()
	if service == "" {
		service = "unknown"
	}
	go postAlert(url, AlertPayload{
		Service:   service,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	})
}

func postAlert(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("alert marshal failed", "error", err)
		return
	}
	resp, err := alertClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Warn("alert webhook POST failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("alert webhook rejected", "status", resp.StatusCode)
	}
}

// CheckDependency feeds one observation of a dependency into the monitor.
// A critical alert fires once the dependency has been unhealthy for its
// delay, and an info alert when it recovers after that.
func CheckDependency(name string, healthy bool, now time.Time) {
	alertMu.Lock()
	defer alertMu.Unlock()

	o := outages[name]
	if healthy {
		if o != nil && o.alerted {
			go SendAlert(name+alertSuffixDown, SeverityInfo, name+" restored", map[string]interface{}{
				"dependency":   name,
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		delete(outages, name)
		return
	}

	if o == nil {
		o = &outage{since: now}
		outages[name] = o
	}
	down := now.Sub(o.since)
	if o.alerted || down < alertDelays[name] {
		return
	}
	o.alerted = true
	go SendAlert(name+alertSuffixDown, SeverityCritical, name+" unavailable", map[string]interface{}{
		"dependency":   name,
		"down_since":   o.since.UTC().Format(time.RFC3339),
		"down_seconds": int(down.Seconds()),
	})
}

// StartAlertMonitor checks every dependency each interval until ctx is done.
func StartAlertMonitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				_, deps := readiness.snapshot()
				for _, name := range dependencyNames {
					CheckDependency(name, deps[name].healthy(), now)
				}
			}
		}
	}()
}

// WatchHalts sends a critical alert for every agent.halted event until ctx
// is done.
func WatchHalts(ctx context.Context) {
	sub := events.Subscribe()
	go func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				if e.Name != "agent.halted" {
					continue
				}
				details := map[string]interface{}{"agent": e.Agent}
				for k, v := range e.Fields {
					details[k] = v
				}
				SendAlert(AlertAgentHalted, SeverityCritical, "agent halted", details)
			}
		}
	}()
}

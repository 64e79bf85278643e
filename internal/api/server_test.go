package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "behaviord", resp.Service)
}

func setReadiness(t *testing.T, world bool, deps map[string]Dependency) {
	t.Helper()
	saved := readiness
	readiness = newReadiness()
	t.Cleanup(func() { readiness = saved })

	SetWorldReady(world)
	for name, d := range deps {
		SetDependencyState(name, d.Connected, d.Optional)
	}
}

func TestReadyEndpoint(t *testing.T) {
	up := Dependency{Connected: true}
	down := Dependency{}
	disabled := Dependency{Optional: true}

	tests := []struct {
		name    string
		world   bool
		deps    map[string]Dependency
		want    int
		checks  map[string]string
		message string
	}{
		{
			name:  "all connected",
			world: true,
			deps:  map[string]Dependency{DepMQTT: up, DepPostgres: up, DepCommands: up},
			want:  http.StatusOK,
			checks: map[string]string{
				"world": "ok", DepMQTT: "ok", DepPostgres: "ok", DepCommands: "ok",
			},
		},
		{
			name:   "defaults are optional",
			world:  true,
			want:   http.StatusOK,
			checks: map[string]string{DepMQTT: "unavailable", DepPostgres: "unavailable", DepCommands: "unavailable"},
		},
		{
			name:    "world not ready",
			world:   false,
			deps:    map[string]Dependency{DepMQTT: up, DepPostgres: up},
			want:    http.StatusServiceUnavailable,
			checks:  map[string]string{"world": "not_ready"},
			message: "world not ready",
		},
		{
			name:   "optional mqtt down",
			world:  true,
			deps:   map[string]Dependency{DepMQTT: disabled, DepPostgres: up},
			want:   http.StatusOK,
			checks: map[string]string{DepMQTT: "unavailable"},
		},
		{
			name:    "required mqtt down",
			world:   true,
			deps:    map[string]Dependency{DepMQTT: down, DepPostgres: up},
			want:    http.StatusServiceUnavailable,
			checks:  map[string]string{DepMQTT: "not_ready"},
			message: "mqtt not ready",
		},
		{
			name:    "several down",
			world:   false,
			deps:    map[string]Dependency{DepMQTT: down, DepCommands: down},
			want:    http.StatusServiceUnavailable,
			message: "world not ready; mqtt not ready; commands not ready",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setReadiness(t, tt.world, tt.deps)

			rec := httptest.NewRecorder()
			readyHandler(rec, httptest.NewRequest("GET", "/ready", nil))
			assert.Equal(t, tt.want, rec.Code)

			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want == http.StatusOK, resp.Ready)
			assert.Len(t, resp.Checks, 4)
			for name, status := range tt.checks {
				assert.Equal(t, status, resp.Checks[name].Status, name)
			}
			assert.Equal(t, tt.message, resp.NotReadyMsg)
		})
	}
}

func TestSetDependencyState(t *testing.T) {
	setReadiness(t, false, nil)

	SetWorldReady(true)
	SetDependencyState(DepPostgres, false, false)
	world, deps := readiness.snapshot()
	assert.True(t, world)
	assert.Equal(t, Dependency{}, deps[DepPostgres])
	assert.False(t, deps[DepPostgres].healthy())

	SetDependencyState(DepPostgres, false, true)
	_, deps = readiness.snapshot()
	assert.True(t, deps[DepPostgres].healthy())
}

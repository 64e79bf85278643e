package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetAuth() {
	auth = nil
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireRole(t *testing.T) {
	both := newAuthConfig(
		credential{"admin", "secret", RoleAdmin},
		credential{"operator", "opsecret", RoleOperator},
	)
	adminOnly := newAuthConfig(credential{"admin", "secret", RoleAdmin})

	tests := []struct {
		name       string
		cfg        *authConfig
		adminOnly  bool
		user, pass string
		want       int
	}{
		{"disabled", &authConfig{}, true, "", "", http.StatusOK},
		{"nil config", nil, true, "", "", http.StatusOK},
		{"no credentials", both, false, "", "", http.StatusUnauthorized},
		{"admin", both, false, "admin", "secret", http.StatusOK},
		{"operator", both, false, "operator", "opsecret", http.StatusOK},
		{"wrong password", both, false, "admin", "wrong", http.StatusUnauthorized},
		{"unknown user", both, false, "hacker", "secret", http.StatusUnauthorized},
		{"admin on admin route", both, true, "admin", "secret", http.StatusOK},
		{"operator on admin route", both, true, "operator", "opsecret", http.StatusForbidden},
		{"operator unset", adminOnly, false, "operator", "opsecret", http.StatusUnauthorized},
		{"empty operator login", adminOnly, false, "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth = tt.cfg
			t.Cleanup(resetAuth)

			handler := RequireAnyRole(okHandler)
			if tt.adminOnly {
				handler = RequireAdmin(okHandler)
			}
			req := httptest.NewRequest("POST", "/agents", nil)
			if tt.user != "" || tt.pass != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="behaviord"`)
			}
		})
	}
}

func TestNewAuthConfigNeedsAdmin(t *testing.T) {
	cfg := newAuthConfig(
		credential{"", "", RoleAdmin},
		credential{"operator", "opsecret", RoleOperator},
	)
	auth = cfg
	t.Cleanup(resetAuth)
	assert.False(t, IsAuthEnabled(), "operator credentials alone do not enable auth")

	auth = newAuthConfig(credential{"admin", "", RoleAdmin})
	assert.False(t, IsAuthEnabled(), "a user without a password is ignored")
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("test", "test"))
	assert.False(t, secureCompare("test", "Test"))
	assert.False(t, secureCompare("", "test"))
}

func TestInitAuthFromEnv(t *testing.T) {
	t.Cleanup(resetAuth)
	t.Setenv("BEHAVIOR_ADMIN_USER", "root")
	t.Setenv("BEHAVIOR_ADMIN_PASS", "hunter2")
	t.Setenv("BEHAVIOR_OPERATOR_USER", "")
	t.Setenv("BEHAVIOR_OPERATOR_PASS", "")
	for _, k := range []string{"ADMIN_USER", "ADMIN_PASS", "OPERATOR_USER", "OPERATOR_PASS"} {
		t.Setenv("BEHAVIOR_"+k+"_FILE", "")
	}

	require.NoError(t, InitAuth())
	require.True(t, IsAuthEnabled())

	req := httptest.NewRequest("POST", "/agents", nil)
	req.SetBasicAuth("root", "hunter2")
	assert.Equal(t, RoleAdmin, authenticate(req))
}

func TestInitAuthMissingSecretFile(t *testing.T) {
	t.Cleanup(resetAuth)
	t.Setenv("BEHAVIOR_ADMIN_USER", "")
	t.Setenv("BEHAVIOR_ADMIN_USER_FILE", "/nonexistent/admin_user")

	assert.Error(t, InitAuth())
}

package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/behaviorgraph/internal/config"
)

// Role is what a set of credentials may do. Operators drive agents; admins
// also change the population and the stored graphs.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

type credential struct {
	user, pass string
	role       Role
}

// authConfig is nil or empty when authentication is off.
type authConfig struct {
	creds []credential
}

var auth *authConfig

// InitAuth reads credentials from BEHAVIOR_{ADMIN,OPERATOR}_{USER,PASS},
// each of which may name a file via the _FILE suffix. Auth stays off until
// an admin user and password are both set; operator credentials alone are
// ignored.
func InitAuth() error {
	s, err := config.ResolveSecrets(
		"BEHAVIOR_ADMIN_USER",
		"BEHAVIOR_ADMIN_PASS",
		"BEHAVIOR_OPERATOR_USER",
		"BEHAVIOR_OPERATOR_PASS",
	)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	auth = newAuthConfig(
		credential{s["BEHAVIOR_ADMIN_USER"], s["BEHAVIOR_ADMIN_PASS"], RoleAdmin},
		credential{s["BEHAVIOR_OPERATOR_USER"], s["BEHAVIOR_OPERATOR_PASS"], RoleOperator},
	)
	return nil
}

func newAuthConfig(creds ...credential) *authConfig {
	cfg := &authConfig{}
	for _, c := range creds {
		if c.user != "" && c.pass != "" {
			cfg.creds = append(cfg.creds, c)
		}
	}
	if len(cfg.creds) == 0 || cfg.creds[0].role != RoleAdmin {
		return &authConfig{}
	}
	return cfg
}

// IsAuthEnabled reports whether requests must carry credentials.
func IsAuthEnabled() bool {
	return auth != nil && len(auth.creds) > 0
}

// authenticate returns the caller's role, or "" for missing or wrong
// credentials. Every request is an admin while auth is off.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	for _, c := range auth.creds {
		if secureCompare(user, c.user) && secureCompare(pass, c.pass) {
			return c.role
		}
	}
	return ""
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RequireRole admits callers holding one of roles: 401 without valid
// credentials, 403 with the wrong role.
func RequireRole(handler http.HandlerFunc, roles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="behaviord"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole admits admins and operators.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin admits admins only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}

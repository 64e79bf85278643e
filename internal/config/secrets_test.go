package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write secret: %v", err)
	}
	return path
}

func TestResolveSecret(t *testing.T) {
	tests := []struct {
		name string
		env  string
		file string // written to a temp file when non-empty
		want string
	}{
		{"unset", "", "", ""},
		{"env only", "env-value", "", "env-value"},
		{"file only", "", "file-value\n", "file-value"},
		{"file wins", "env-value", "file-value", "file-value"},
		{"trims", "", "  spaced  \n\n", "spaced"},
		{"blank file", "env-value", " \n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BEHAVIOR_TEST_SECRET", tt.env)
			t.Setenv("BEHAVIOR_TEST_SECRET_FILE", "")
			if tt.file != "" {
				t.Setenv("BEHAVIOR_TEST_SECRET_FILE", writeSecret(t, tt.file))
			}

			got, err := ResolveSecret("BEHAVIOR_TEST_SECRET")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveSecretMissingFile(t *testing.T) {
	t.Setenv("BEHAVIOR_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "absent"))
	if _, err := ResolveSecret("BEHAVIOR_TEST_SECRET"); err == nil {
		t.Error("expected error for missing secret file")
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("BEHAVIOR_TEST_USER", "admin")
	t.Setenv("BEHAVIOR_TEST_USER_FILE", "")
	t.Setenv("BEHAVIOR_TEST_PASS", "")
	t.Setenv("BEHAVIOR_TEST_PASS_FILE", writeSecret(t, "hunter2\n"))

	got, err := ResolveSecrets("BEHAVIOR_TEST_USER", "BEHAVIOR_TEST_PASS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["BEHAVIOR_TEST_USER"] != "admin" || got["BEHAVIOR_TEST_PASS"] != "hunter2" {
		t.Errorf("unexpected secrets: %v", got)
	}

	t.Setenv("BEHAVIOR_TEST_PASS_FILE", filepath.Join(t.TempDir(), "absent"))
	if _, err := ResolveSecrets("BEHAVIOR_TEST_USER", "BEHAVIOR_TEST_PASS"); err == nil {
		t.Error("expected error when one secret file is missing")
	}
}

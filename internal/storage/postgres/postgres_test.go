package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 200},
		{0, 200},
		{1, 1},
		{500, 500},
		{10000, 10000},
		{20000, 10000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}

func TestNullable(t *testing.T) {
	assert.False(t, nullable("").Valid)
	v := nullable("agent-1")
	assert.True(t, v.Valid)
	assert.Equal(t, "agent-1", v.String)
}

func TestConfigDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			"no password",
			Config{Host: "db", Port: "5432", User: "behavior", Database: "behavior", SSLMode: "disable"},
			"host=db port=5432 user=behavior dbname=behavior sslmode=disable",
		},
		{
			"quoted password",
			Config{Host: "db", User: "u", Password: `it's a \secret`, Database: "d"},
			`host=db user=u password='it\'s a \\secret' dbname=d`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PGHOST", "pg.internal")
	t.Setenv("PGPORT", "")
	t.Setenv("PGUSER", "")
	t.Setenv("PGDATABASE", "graphs")
	t.Setenv("PGSSLMODE", "require")

	assert.Equal(t, Config{
		Host:     "pg.internal",
		Port:     "5432",
		User:     "behavior",
		Database: "graphs",
		Password: "pw",
		SSLMode:  "require",
	}, ConfigFromEnv("pw"))
}

func TestClientWithoutDB(t *testing.T) {
	for _, c := range []*Client{nil, {}} {
		assert.NoError(t, c.Close())
		assert.Error(t, c.Ping())
		assert.Error(t, c.Append(time.Now(), "info", "system.startup", "", nil, ""))
		_, err := c.Query(10, "")
		assert.Error(t, err)
		_, err = c.SaveGraph("g", []byte("{}"))
		assert.Error(t, err)
		_, err = c.ListGraphs()
		assert.Error(t, err)
		_, err = c.LoadGraph("g")
		assert.True(t, errors.Is(err, errNotOpen))
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "kitchen:\n  password: secret\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	assert.Equal(t, 6, cfg.Schedule.Capacity)
	assert.Len(t, cfg.Schedule.Slots["Saturday"], 8)
	assert.Len(t, cfg.Schedule.Slots["Sunday"], 7)
	assert.Equal(t, 24, cfg.Kitchen.CookieMaxAgeHr)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.SMS.Enabled())
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "lafayette", cfg.Kitchen.Password)
	assert.Equal(t, 2, cfg.WorkerPool.Size)
	assert.Equal(t, []string{"10:00-10:30", "10:30-11:00", "11:30-12:00", "12:00-12:30",
		"12:30-13:00", "13:00-13:30", "13:30-14:00"}, cfg.Schedule.Slots["Sunday"])
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing password", body: "server:\n  port: 8080\n"},
		{name: "unknown backend", body: "kitchen:\n  password: x\nstore:\n  backend: mongo\n"},
		{name: "bad timezone", body: "kitchen:\n  password: x\nschedule:\n  timezone: Mars/Olympus\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KITCHEN_PASSWORD", "from-env")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")

	cfg, err := Load(writeConfig(t, "kitchen:\n  password: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Kitchen.Password)
	assert.True(t, cfg.SMS.Enabled())
}

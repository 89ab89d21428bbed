package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "MODEM_URL", "DEVICE_POLL_INTERVAL", "QUEUE_POLL_INTERVAL", "CONSOLE_POLL_INTERVAL", "DB_DRIVER", "MODEM_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "http://192.168.1.50", cfg.ModemURL)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.DevicePollInterval)
	assert.Equal(t, 3*time.Second, cfg.QueuePollInterval)
	assert.Equal(t, 3*time.Second, cfg.ConsolePollInterval)
	assert.Equal(t, time.Duration(0), cfg.ModemTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("MODEM_URL", "http://modem.local")
	t.Setenv("DEVICE_POLL_INTERVAL", "2500")
	t.Setenv("QUEUE_POLL_INTERVAL", "1s")
	t.Setenv("DB_DRIVER", "Postgres")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://modem.local", cfg.ModemURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.DevicePollInterval)
	assert.Equal(t, time.Second, cfg.QueuePollInterval)
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestGetDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INTERVAL", "soon")
	assert.Equal(t, 7*time.Second, getDuration("SOME_INTERVAL", 7*time.Second))

	t.Setenv("SOME_INTERVAL", "-3s")
	assert.Equal(t, 7*time.Second, getDuration("SOME_INTERVAL", 7*time.Second))
}

func TestPollIntervalsMustBePositive(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DEVICE_POLL_INTERVAL", "-5")
	t.Setenv("QUEUE_POLL_INTERVAL", "0")
	t.Setenv("CONSOLE_POLL_INTERVAL", "0s")
	t.Setenv("MODEM_TIMEOUT", "0")

	cfg := LoadConfig()

	assert.Equal(t, 5*time.Second, cfg.DevicePollInterval)
	assert.Equal(t, 3*time.Second, cfg.QueuePollInterval)
	assert.Equal(t, 3*time.Second, cfg.ConsolePollInterval)
	assert.Equal(t, time.Duration(0), cfg.ModemTimeout)
}

func TestGetDurationRejectsNegativeMilliseconds(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "-250")
	assert.Equal(t, time.Second, getDuration("SOME_TIMEOUT", time.Second))

	t.Setenv("SOME_TIMEOUT", "250")
	assert.Equal(t, 250*time.Millisecond, getDuration("SOME_TIMEOUT", time.Second))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

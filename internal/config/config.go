package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Modem web server the dashboard mirrors.
	ModemURL     string
	ModemTimeout time.Duration
	LDAPSyncURL  string

	DevicePollInterval  time.Duration
	QueuePollInterval   time.Duration
	ConsolePollInterval time.Duration

	PromptTimeout time.Duration
	StartupRetry  time.Duration

	DBDriver string
	DBPath   string
	DBDSN    string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:                getEnv("PORT", "8090"),
		ModemURL:            getEnv("MODEM_URL", "http://192.168.1.50"),
		ModemTimeout:        getDuration("MODEM_TIMEOUT", 0),
		LDAPSyncURL:         getEnv("LDAP_SYNC_URL", "/api/ldap-sync"),
		DevicePollInterval:  getInterval("DEVICE_POLL_INTERVAL", 5*time.Second),
		QueuePollInterval:   getInterval("QUEUE_POLL_INTERVAL", 3*time.Second),
		ConsolePollInterval: getInterval("CONSOLE_POLL_INTERVAL", 3*time.Second),
		PromptTimeout:       getDuration("PROMPT_TIMEOUT", 2*time.Minute),
		StartupRetry:        getDuration("STARTUP_RETRY", 30*time.Second),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:              getEnv("DB_PATH", "./dashboard.db"),
		DBDSN:               getEnv("DB_DSN", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if ms, atoiErr := strconv.Atoi(raw); atoiErr == nil {
		value, err = time.Duration(ms)*time.Millisecond, nil
	}
	if err != nil || value < 0 {
		log.Printf("invalid %s=%q, using fallback %s", key, raw, fallback)
		return fallback
	}
	return value
}

// getInterval is getDuration for poll cadences, which must be positive.
func getInterval(key string, fallback time.Duration) time.Duration {
	value := getDuration(key, fallback)
	if value <= 0 {
		log.Printf("invalid %s=%s, using fallback %s", key, value, fallback)
		return fallback
	}
	return value
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	baseURLVar        = "BASE_URL"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	databaseURLVar    = "DATABASE_URL"
	configFileEnvVar  = "CONFIG_FILE"
	signingKeyFileVar = "SIGNING_KEY_FILE"
)

// values resolves a setting from the environment first, then the optional file overlay.
type values struct {
	file map[string]string
}

func newValues() *values {
	return &values{file: map[string]string{}}
}

func (v *values) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if v != nil {
		if value, ok := v.file[key]; ok && value != "" {
			return value
		}
	}
	return defaultValue
}

func (v *values) getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(v.get(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func (v *values) getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(v.get(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

type EnvVars struct {
	values *values
}

var _ EnvConfig = EnvVars{}
var _ DatabaseConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.values.get(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.values.get(appNameVar, "Go Blog")
}

// GetBaseURL returns the externally visible URL of the server (e.g., "https://blog.example.com").
// It is used as the token issuer.
func (e EnvVars) GetBaseURL() string {
	return e.values.get(baseURLVar, "http://localhost:8080")
}

func (e EnvVars) GetEnv() string {
	return e.values.get(envVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.values.get(logLevelVar, "info")
}

// GetDatabaseURL returns the Postgres DSN. Empty means in-memory storage.
func (e EnvVars) GetDatabaseURL() string {
	return e.values.get(databaseURLVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

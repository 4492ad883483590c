package config

import "time"

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetSessionCleanupInterval() time.Duration
	GetMinPasswordLength() int
	GetSecureCookies() bool
}

type Security struct {
	values *values
}

var _ SecurityConfig = Security{}

// GetMaxSessionAge is how long a sign-in stays refreshable.
func (s Security) GetMaxSessionAge() time.Duration {
	return s.values.getDuration("SESSION_MAX_AGE", 7*24*time.Hour)
}

func (s Security) GetSessionCleanupInterval() time.Duration {
	return s.values.getDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute)
}

func (s Security) GetMinPasswordLength() int {
	return s.values.getInt("MIN_PASSWORD_LENGTH", 6)
}

func (s Security) GetSecureCookies() bool {
	return s.values.get(envVar, "DEV") == "PROD"
}

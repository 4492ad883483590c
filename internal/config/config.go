package config

import "github.com/rs/zerolog/log"

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	SecurityConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type DatabaseConfig interface {
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Security
}

// New builds the configuration from environment variables. When CONFIG_FILE
// names a YAML file its values are used wherever the environment is silent.
func New() Config {
	values := newValues()
	if path := GetEnv(configFileEnvVar, ""); path != "" {
		fileValues, err := LoadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring config file")
		} else {
			values.file = fileValues
		}
	}
	return mainConfig{
		EnvVars:  EnvVars{values: values},
		Cors:     Cors{values: values},
		Auth:     Auth{values: values},
		Security: Security{values: values},
	}
}

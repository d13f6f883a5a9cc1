package config

import "time"

type Config interface {
	EnvConfig
	GatewayConfig
}

type EnvConfig interface {
	GetAPIBaseURL() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type GatewayConfig interface {
	GetMinLatency() time.Duration
	GetLargePayloadThreshold() int64
	GetRequestTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
	GetRefreshPolicy() string
	GetPublicPaths() []string
	GetAllowInsecure() bool
}

type mainConfig struct {
	EnvVars
	Gateway
}

// New returns a Config backed by environment variables and built-in defaults.
func New() Config {
	return mainConfig{}
}

// LoadFile returns a Config whose defaults come from the YAML file at path.
// Environment variables still take precedence over file values.
func LoadFile(path string) (Config, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{
		EnvVars: EnvVars{file: f},
		Gateway: Gateway{file: f},
	}, nil
}

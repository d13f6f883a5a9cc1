package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML configuration file.
type fileConfig struct {
	APIURL     string `yaml:"api_url"`
	AppName    string `yaml:"app_name"`
	DataFolder string `yaml:"data_folder"`
	LogLevel   string `yaml:"log_level"`
	Env        string `yaml:"env"`

	Gateway struct {
		MinLatency            string   `yaml:"min_latency"`             // e.g. "800ms"
		LargePayloadThreshold string   `yaml:"large_payload_threshold"` // bytes
		RequestTimeout        string   `yaml:"request_timeout"`         // e.g. "30s"
		RateLimit             string   `yaml:"rate_limit"`              // requests per second, 0 disables
		RateBurst             string   `yaml:"rate_burst"`
		RefreshPolicy         string   `yaml:"refresh_policy"` // share or drop
		PublicPaths           []string `yaml:"public_paths"`
		AllowInsecure         bool     `yaml:"allow_insecure"`
	} `yaml:"gateway"`
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	f := &fileConfig{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return f, nil
}

// str returns the file value selected by get, or def when there is no file or the value is empty.
func (f *fileConfig) str(get func(*fileConfig) string, def string) string {
	if f == nil {
		return def
	}
	if v := get(f); v != "" {
		return v
	}
	return def
}

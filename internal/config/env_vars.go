package config

import (
	"os"
	"strings"
)

const (
	apiURLEnvVar   = "BGV_API_URL"
	appNameVar     = "APP_NAME"
	folderEnvVar   = "BGV_DATA_FOLDER"
	logLevelEnvVar = "LOG_LEVEL"
	envEnvVar      = "ENV"
)

type EnvVars struct {
	file *fileConfig
}

var _ EnvConfig = EnvVars{}

// GetAPIBaseURL returns the API prefix every request path is resolved against,
// without a trailing slash (e.g. "https://bgv.example.com/api").
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiURLEnvVar, e.file.str(func(f *fileConfig) string { return f.APIURL }, "http://localhost:8080/api")), "/")
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, e.file.str(func(f *fileConfig) string { return f.AppName }, "BGV Gateway"))
}

func (e EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, e.file.str(func(f *fileConfig) string { return f.DataFolder }, "./data"))
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelEnvVar, e.file.str(func(f *fileConfig) string { return f.LogLevel }, "info")))
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envEnvVar, e.file.str(func(f *fileConfig) string { return f.Env }, "DEV")))
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

package config

import (
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	logLevelEnvVar = "LOG_LEVEL"
	envEnvVar      = "ENV"
)

type EnvVars struct {
	v values
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.v.get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.get(appNameVar, "Riff Finder")
}

// GetBaseURL returns the externally visible base URL of this service (e.g., "https://riff.example.com")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.v.get(baseURLVar, "http://localhost:8080"), "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.v.get(logLevelEnvVar, "info")
}

func (e EnvVars) GetEnv() string {
	return e.v.get(envEnvVar, "DEV")
}

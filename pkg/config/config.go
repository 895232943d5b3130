package config

import (
	"os"
	"strings"
)

// App holds runtime configuration derived from env vars.
type App struct {
	Environment       string
	LogLevel          string
	Port              string
	CORSOrigins       []string
	DatabaseURL       string
	KafkaBrokers      string
	RailwayStaticURL  string
	CadenceServiceURL string
	EngineVersion     string
	ScriptsDir        string
}

// FromEnv loads the application configuration from environment variables.
func FromEnv() App {
	return App{
		Environment:       getEnv("ENVIRONMENT", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnv("PORT", "3001"),
		CORSOrigins:       getCORSOrigins(),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		RailwayStaticURL:  os.Getenv("RAILWAY_STATIC_URL"),
		CadenceServiceURL: os.Getenv("CADENCE_SERVICE_URL"),
		EngineVersion:     getEnv("AUTOMATION_ENGINE_VERSION", "v1"),
		ScriptsDir:        getEnv("AUTOMATION_SCRIPTS_DIR", "scripts"),
	}
}

// DownstreamBaseURL builds the base URL of the push-send service. In hosted
// environments the public Railway hostname is used; locally the push-send
// service shares the process port.
func (a App) DownstreamBaseURL() string {
	if a.RailwayStaticURL != "" {
		return "https://" + a.RailwayStaticURL
	}
	return "http://localhost:" + a.Port
}

// IsBuildPhase reports whether the process is running under build-time static
// analysis rather than serving for real. The engine must not be instantiated
// during such phases.
func IsBuildPhase() bool {
	if os.Getenv("ENGINE_BUILD_PHASE") == "1" {
		return true
	}
	return os.Getenv("ENVIRONMENT") == "build"
}

// getEnv returns the value of the environment variable or a default if unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getCORSOrigins parses CORS_ORIGINS as a comma-separated list, defaulting to wildcard.
func getCORSOrigins() []string {
	raw := os.Getenv("CORS_ORIGINS")
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

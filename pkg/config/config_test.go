package config

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		original, had := os.LookupEnv(key)
		if value == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, value)
		}
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func TestFromEnv_WhenAllVariablesSet_ThenReturnsConfigWithSetValues(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{
		"DATABASE_URL":              "user:pass@tcp(localhost:3306)/pushmill",
		"KAFKA_BROKERS":             "kafka1:9092,kafka2:9092",
		"PORT":                      "9000",
		"ENVIRONMENT":               "development",
		"LOG_LEVEL":                 "debug",
		"CORS_ORIGINS":              "http://localhost:3000,https://example.com",
		"RAILWAY_STATIC_URL":        "pushmill.up.railway.app",
		"CADENCE_SERVICE_URL":       "http://cadence:4000",
		"AUTOMATION_ENGINE_VERSION": "v2",
	})

	// Act
	config := FromEnv()

	// Assert
	if config.DatabaseURL != "user:pass@tcp(localhost:3306)/pushmill" {
		t.Errorf("unexpected DatabaseURL: %s", config.DatabaseURL)
	}
	if config.KafkaBrokers != "kafka1:9092,kafka2:9092" {
		t.Errorf("unexpected KafkaBrokers: %s", config.KafkaBrokers)
	}
	if config.Port != "9000" {
		t.Errorf("expected Port to be '9000', got '%s'", config.Port)
	}
	if config.Environment != "development" {
		t.Errorf("expected Environment to be 'development', got '%s'", config.Environment)
	}
	if config.LogLevel != "debug" {
		t.Errorf("expected LogLevel to be 'debug', got '%s'", config.LogLevel)
	}
	if config.EngineVersion != "v2" {
		t.Errorf("expected EngineVersion to be 'v2', got '%s'", config.EngineVersion)
	}
	if len(config.CORSOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %d", len(config.CORSOrigins))
	}
	if config.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected first CORS origin: %s", config.CORSOrigins[0])
	}
	if config.CORSOrigins[1] != "https://example.com" {
		t.Errorf("unexpected second CORS origin: %s", config.CORSOrigins[1])
	}
}

func TestFromEnv_WhenNoVariablesSet_ThenReturnsDefaults(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{
		"DATABASE_URL":              "",
		"KAFKA_BROKERS":             "",
		"PORT":                      "",
		"ENVIRONMENT":               "",
		"LOG_LEVEL":                 "",
		"CORS_ORIGINS":              "",
		"RAILWAY_STATIC_URL":        "",
		"CADENCE_SERVICE_URL":       "",
		"AUTOMATION_ENGINE_VERSION": "",
	})

	// Act
	config := FromEnv()

	// Assert
	if config.DatabaseURL != "" {
		t.Errorf("expected DatabaseURL to be empty, got '%s'", config.DatabaseURL)
	}
	if config.Port != "3001" {
		t.Errorf("expected Port to default to '3001', got '%s'", config.Port)
	}
	if config.Environment != "production" {
		t.Errorf("expected Environment to be 'production', got '%s'", config.Environment)
	}
	if config.LogLevel != "info" {
		t.Errorf("expected LogLevel to be 'info', got '%s'", config.LogLevel)
	}
	if config.EngineVersion != "v1" {
		t.Errorf("expected EngineVersion to default to 'v1', got '%s'", config.EngineVersion)
	}
	if len(config.CORSOrigins) != 1 || config.CORSOrigins[0] != "*" {
		t.Errorf("expected CORS origins to be ['*'], got %v", config.CORSOrigins)
	}
}

func TestDownstreamBaseURL_WhenRailwayHostSet_ThenUsesHTTPS(t *testing.T) {
	// Arrange
	app := App{RailwayStaticURL: "pushmill.up.railway.app", Port: "3001"}

	// Act
	url := app.DownstreamBaseURL()

	// Assert
	if url != "https://pushmill.up.railway.app" {
		t.Errorf("expected https railway URL, got '%s'", url)
	}
}

func TestDownstreamBaseURL_WhenNoRailwayHost_ThenUsesLocalhostPort(t *testing.T) {
	// Arrange
	app := App{Port: "9000"}

	// Act
	url := app.DownstreamBaseURL()

	// Assert
	if url != "http://localhost:9000" {
		t.Errorf("expected localhost URL, got '%s'", url)
	}
}

func TestIsBuildPhase_WhenMarkerSet_ThenTrue(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{"ENGINE_BUILD_PHASE": "1"})

	// Act / Assert
	if !IsBuildPhase() {
		t.Error("expected build phase to be detected")
	}
}

func TestIsBuildPhase_WhenEnvironmentBuild_ThenTrue(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{"ENGINE_BUILD_PHASE": "", "ENVIRONMENT": "build"})

	// Act / Assert
	if !IsBuildPhase() {
		t.Error("expected build phase to be detected")
	}
}

func TestIsBuildPhase_WhenNoMarkers_ThenFalse(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{"ENGINE_BUILD_PHASE": "", "ENVIRONMENT": "production"})

	// Act / Assert
	if IsBuildPhase() {
		t.Error("did not expect build phase")
	}
}

func TestGetCORSOrigins_WhenMultipleOriginsWithWhitespace_ThenTrimsCorrectly(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{"CORS_ORIGINS": " http://localhost:3000 , https://example.com ,  "})

	// Act
	origins := getCORSOrigins()

	// Assert
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins after trimming, got %d", len(origins))
	}
	if origins[0] != "http://localhost:3000" {
		t.Errorf("unexpected first origin: %s", origins[0])
	}
	if origins[1] != "https://example.com" {
		t.Errorf("unexpected second origin: %s", origins[1])
	}
}

func TestGetEnv_WhenVariableEmpty_ThenReturnsDefault(t *testing.T) {
	// Arrange
	withEnv(t, map[string]string{"EMPTY_VAR": ""})

	// Act
	result := getEnv("EMPTY_VAR", "default_value")

	// Assert
	if result != "default_value" {
		t.Errorf("expected 'default_value', got '%s'", result)
	}
}

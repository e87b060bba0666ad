package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"airhealth/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Cache     CacheConfig
	Analysis  AnalysisConfig
	Dashboard DashboardConfig
	Metrics   MetricsConfig
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataBackend selects which observation store adapter serves the input
// documents.
type DataBackend string

const (
	BackendFile     DataBackend = "file"
	BackendPostgres DataBackend = "postgres"
	BackendSynth    DataBackend = "synthetic"
)

// DataConfig holds observation store settings
type DataConfig struct {
	Backend      DataBackend
	ExposureFile string
	CasesFile    string
	DatabaseURL  string
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Dir string
}

// AnalysisConfig holds the statistical parameters of the engine
type AnalysisConfig struct {
	TargetRegion   string
	Provinces      []string
	MinCommonWeeks int
	MaxLag         int
	ForecastWeeks  int
	FitTimeout     time.Duration
	ComputeRPS     float64
	ComputeBurst   int
}

// DashboardConfig holds dashboard server settings
type DashboardConfig struct {
	Enabled bool
	Port    string
}

// MetricsConfig holds Prometheus exposure settings
type MetricsConfig struct {
	Enabled bool
}

// defaultProvinces is the configured target region's province list.
var defaultProvinces = []string{
	"จันทบุรี", "ฉะเชิงเทรา", "ชลบุรี", "ตราด",
	"ปราจีนบุรี", "ระยอง", "สมุทรปราการ", "สระแก้ว",
}

// DefaultTargetRegion is the health-region label stations must carry to
// contribute exposure readings.
const DefaultTargetRegion = "เขตสุขภาพที่ 6"

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Data:      loadDataConfig(),
		Cache:     loadCacheConfig(),
		Analysis:  loadAnalysisConfig(),
		Dashboard: loadDashboardConfig(),
		Metrics:   loadMetricsConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8000"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadDataConfig() DataConfig {
	return DataConfig{
		Backend:      DataBackend(getEnvOrDefault("DATA_BACKEND", string(BackendFile))),
		ExposureFile: getEnvOrDefault("EXPOSURE_DATA_FILE", "data/pm25_consolidated.json"),
		CasesFile:    getEnvOrDefault("CASES_DATA_FILE", "data/hdc_consolidated.json"),
		DatabaseURL:  getEnvOrDefault("DATABASE_URL", ""),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Dir: getEnvOrDefault("CACHE_DIR", "cache"),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		TargetRegion:   getEnvOrDefault("TARGET_REGION", DefaultTargetRegion),
		Provinces:      getEnvListOrDefault("PROVINCES", defaultProvinces),
		MinCommonWeeks: getEnvIntOrDefault("MIN_COMMON_WEEKS", 5),
		MaxLag:         getEnvIntOrDefault("MAX_LAG", 4),
		ForecastWeeks:  getEnvIntOrDefault("FORECAST_WEEKS", 8),
		FitTimeout:     getEnvDurationOrDefault("FIT_TIMEOUT", 30*time.Second),
		ComputeRPS:     getEnvFloatOrDefault("COMPUTE_RPS", 1.0),
		ComputeBurst:   getEnvIntOrDefault("COMPUTE_BURST", 2),
	}
}

func loadDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Enabled: getEnvBoolOrDefault("DASHBOARD_ENABLED", true),
		Port:    getEnvOrDefault("DASHBOARD_PORT", "8001"),
	}
}

func loadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

func validateConfig(config *Config) error {
	switch config.Data.Backend {
	case BackendFile:
		if config.Data.ExposureFile == "" || config.Data.CasesFile == "" {
			return errors.ConfigInvalid("EXPOSURE_DATA_FILE and CASES_DATA_FILE are required for the file backend")
		}
	case BackendPostgres:
		if config.Data.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres backend")
		}
	case BackendSynth:
		// Synthetic backend needs no external documents.
	default:
		return errors.ConfigInvalid("DATA_BACKEND must be file, postgres or synthetic")
	}
	if config.Analysis.TargetRegion == "" {
		return errors.ConfigInvalid("TARGET_REGION cannot be empty")
	}
	if len(config.Analysis.Provinces) == 0 {
		return errors.ConfigInvalid("PROVINCES cannot be empty")
	}
	if config.Analysis.MaxLag < 0 {
		return errors.ConfigInvalid("MAX_LAG cannot be negative")
	}
	if config.Analysis.ForecastWeeks <= 0 {
		return errors.ConfigInvalid("FORECAST_WEEKS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

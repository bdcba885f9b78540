// Package config provides configuration for the trust core service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration. Statistical thresholds are
// observed product defaults, not derived facts; they stay configurable.
type Config struct {
	// Server settings
	HTTPPort     int `yaml:"http_port"`
	InternalPort int `yaml:"internal_port"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Telemetry recording
	KeyframeInterval int64   `yaml:"keyframe_interval"`
	DeltaSampleRate  float64 `yaml:"delta_sample_rate"`

	// Statistics
	MinRuns             int     `yaml:"min_runs"`
	BootstrapIterations int     `yaml:"bootstrap_iterations"`
	PSIStableMax        float64 `yaml:"psi_stable_max"`
	PSIDriftMin         float64 `yaml:"psi_drift_min"`
	KSDriftMin          float64 `yaml:"ks_drift_min"`
	PSIBins             int     `yaml:"psi_bins"`
	StatsWorkers        int64   `yaml:"stats_workers"`
	StatsTimeout        time.Duration `yaml:"stats_timeout"`

	// Branching
	NormalizeTolerance  float64 `yaml:"normalize_tolerance"`
	NormalizeMaxRetries int     `yaml:"normalize_max_retries"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from environment variables, optionally overlaid
// by a YAML file named in CONFIG_FILE.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		InternalPort:        getEnvInt("INTERNAL_PORT", 8081),
		DatabaseURL:         getEnv("DATABASE_URL", "file:trustcore.db?cache=shared&mode=rwc"),
		KeyframeInterval:    int64(getEnvInt("KEYFRAME_INTERVAL", 100)),
		DeltaSampleRate:     getEnvFloat("DELTA_SAMPLE_RATE", 1.0),
		MinRuns:             getEnvInt("MIN_RUNS", 3),
		BootstrapIterations: getEnvInt("BOOTSTRAP_ITERATIONS", 1000),
		PSIStableMax:        getEnvFloat("PSI_STABLE_MAX", 0.1),
		PSIDriftMin:         getEnvFloat("PSI_DRIFT_MIN", 0.25),
		KSDriftMin:          getEnvFloat("KS_DRIFT_MIN", 0.5),
		PSIBins:             getEnvInt("PSI_BINS", 10),
		StatsWorkers:        int64(getEnvInt("STATS_WORKERS", 4)),
		StatsTimeout:        time.Duration(getEnvInt("STATS_TIMEOUT_MS", 10000)) * time.Millisecond,
		NormalizeTolerance:  getEnvFloat("NORMALIZE_TOLERANCE", 0.001),
		NormalizeMaxRetries: getEnvInt("NORMALIZE_MAX_RETRIES", 3),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.KeyframeInterval <= 0 {
		return fmt.Errorf("keyframe_interval must be positive, got %d", c.KeyframeInterval)
	}
	if c.DeltaSampleRate <= 0 || c.DeltaSampleRate > 1 {
		return fmt.Errorf("delta_sample_rate must be in (0,1], got %g", c.DeltaSampleRate)
	}
	if c.MinRuns < 1 {
		return fmt.Errorf("min_runs must be at least 1, got %d", c.MinRuns)
	}
	if c.PSIBins < 2 {
		return fmt.Errorf("psi_bins must be at least 2, got %d", c.PSIBins)
	}
	if c.PSIStableMax >= c.PSIDriftMin {
		return fmt.Errorf("psi_stable_max (%g) must be below psi_drift_min (%g)", c.PSIStableMax, c.PSIDriftMin)
	}
	if c.StatsWorkers < 1 {
		return fmt.Errorf("stats_workers must be at least 1, got %d", c.StatsWorkers)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

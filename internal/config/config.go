package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tunables are the calibration constants of the analysis pipeline. The
// defaults match the values the scoring formulas were calibrated against;
// they are configuration, not law.
type Tunables struct {
	// SharpnessDivisor normalizes Laplacian variance to a 0-100 score.
	SharpnessDivisor float64 `yaml:"sharpness_divisor"`
	// ContrastDivisor normalizes luminance standard deviation to 0-100.
	ContrastDivisor float64 `yaml:"contrast_divisor"`
	// ChunkSize is the concurrency fan-out of the batch orchestrator.
	ChunkSize int `yaml:"chunk_size"`
	// SimilarityThreshold is the duplicate-grouping cutoff in percent.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// MaxAnalysisDim caps the longer image side before analysis; larger
	// images are downscaled to keep metric extraction bounded.
	MaxAnalysisDim int `yaml:"max_analysis_dim"`
}

// DefaultTunables returns the calibrated defaults.
func DefaultTunables() Tunables {
	return Tunables{
		SharpnessDivisor:    500.0,
		ContrastDivisor:     64.0,
		ChunkSize:           10,
		SimilarityThreshold: 85.0,
		MaxAnalysisDim:      800,
	}
}

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	DatabasePath       string
	AzureAccountName   string
	AzureAccountKey    string
	Tunables           Tunables
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv builds a Config from environment variables, then overlays the
// optional YAML tunables file named by CULLER_CONFIG_FILE.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", "culler.db"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		Tunables:           DefaultTunables(),
	}

	if path := os.Getenv("CULLER_CONFIG_FILE"); path != "" {
		if err := loadTunablesFile(path, &cfg.Tunables); err != nil {
			return nil, fmt.Errorf("failed to load tunables from %s: %w", path, err)
		}
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout)
	}
	if err := cfg.Tunables.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t Tunables) validate() error {
	if t.SharpnessDivisor <= 0 || t.ContrastDivisor <= 0 {
		return fmt.Errorf("normalization divisors must be > 0 (sharpness=%v, contrast=%v)",
			t.SharpnessDivisor, t.ContrastDivisor)
	}
	if t.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be > 0 (got %d)", t.ChunkSize)
	}
	if t.SimilarityThreshold < 0 || t.SimilarityThreshold > 100 {
		return fmt.Errorf("similarity_threshold must be in [0,100] (got %v)", t.SimilarityThreshold)
	}
	if t.MaxAnalysisDim <= 0 {
		return fmt.Errorf("max_analysis_dim must be > 0 (got %d)", t.MaxAnalysisDim)
	}
	return nil
}

// loadTunablesFile overlays YAML values onto t; absent keys keep defaults.
func loadTunablesFile(path string, t *Tunables) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, t)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

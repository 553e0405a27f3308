package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trialgrid/trialsearch/internal/domain/query"
)

// Config holds the trialsearch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Elastic    ElasticConfig    `yaml:"elastic"`
	Redis      RedisConfig      `yaml:"redis"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ElasticConfig holds search index connection settings.
type ElasticConfig struct {
	Addr       string `yaml:"addr"`
	Index      string `yaml:"index"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RedisConfig holds cache connection settings. Empty addr disables caching.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

// ExtractionConfig holds entity-extraction provider settings.
type ExtractionConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	CacheTTLSec int     `yaml:"cache_ttl_sec"`
}

// SearchConfig holds orchestration and ranking settings.
type SearchConfig struct {
	SufficiencyThreshold int          `yaml:"sufficiency_threshold"`
	CandidateWindow      int          `yaml:"candidate_window"`
	DefaultPageSize      int          `yaml:"default_page_size"`
	MaxPageSize          int          `yaml:"max_page_size"`
	RelaxationOrder      []string     `yaml:"relaxation_order"`
	Boosts               query.Boosts `yaml:"boosts"`
}

// IngestConfig holds preprocessing pipeline settings.
type IngestConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DefaultRelaxationOrder drops the most specific constraint first.
var DefaultRelaxationOrder = []string{
	"keywords", "locations", "sponsors", "interventions",
	"conditions", "study_type", "status", "phase",
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Elastic.Index == "" {
		c.Elastic.Index = "clinical_trials"
	}
	if c.Elastic.TimeoutSec <= 0 {
		c.Elastic.TimeoutSec = 10
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = "gpt-4o-mini"
	}
	if c.Extraction.Temperature <= 0 {
		c.Extraction.Temperature = 0.1
	}
	if c.Extraction.TimeoutSec <= 0 {
		c.Extraction.TimeoutSec = 10
	}
	if c.Extraction.CacheTTLSec <= 0 {
		c.Extraction.CacheTTLSec = 600
	}
	if c.Search.SufficiencyThreshold <= 0 {
		c.Search.SufficiencyThreshold = 5
	}
	if c.Search.CandidateWindow <= 0 {
		c.Search.CandidateWindow = 100
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 10
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if len(c.Search.RelaxationOrder) == 0 {
		c.Search.RelaxationOrder = append([]string(nil), DefaultRelaxationOrder...)
	}
	if c.Search.Boosts == (query.Boosts{}) {
		c.Search.Boosts = query.DefaultBoosts()
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 8
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Elastic.Addr == "" {
		return fmt.Errorf("elastic.addr is required")
	}
	if c.Search.SufficiencyThreshold > c.Search.CandidateWindow {
		return fmt.Errorf(
			"search.sufficiency_threshold (%d) must not exceed search.candidate_window (%d)",
			c.Search.SufficiencyThreshold, c.Search.CandidateWindow,
		)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf(
			"search.default_page_size (%d) must not exceed search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize,
		)
	}
	known := map[string]bool{
		"keywords": true, "locations": true, "sponsors": true,
		"interventions": true, "conditions": true,
		"study_type": true, "status": true, "phase": true,
	}
	seen := map[string]bool{}
	for _, step := range c.Search.RelaxationOrder {
		if !known[step] {
			return fmt.Errorf("search.relaxation_order: unknown step %q", step)
		}
		if seen[step] {
			return fmt.Errorf("search.relaxation_order: duplicate step %q", step)
		}
		seen[step] = true
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

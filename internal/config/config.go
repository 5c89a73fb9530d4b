package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the paperdex API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
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

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string             `yaml:"provider"`
	APIKey         string             `yaml:"api_key"`
	BaseURL        string             `yaml:"base_url"`
	Model          string             `yaml:"model"`
	Dimensions     int                `yaml:"dimensions"`
	MaxChunkTokens int                `yaml:"max_chunk_tokens"`
	FieldWeights   map[string]float64 `yaml:"field_weights"` // empty = built-in weights
}

// GenerationConfig holds answer generation provider settings.
// An empty api_key disables LLM generation and selects the template fallback.
type GenerationConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	MaxTokens       int     `yaml:"max_tokens"`
	InputRatePer1K  float64 `yaml:"input_rate_per_1k"`
	OutputRatePer1K float64 `yaml:"output_rate_per_1k"`
}

// RetrievalConfig holds index, pagination, and fusion settings.
type RetrievalConfig struct {
	HNSWM             int    `yaml:"hnsw_m"`
	HNSWEFConstruct   int    `yaml:"hnsw_ef_construction"`
	DefaultPageSize   int    `yaml:"default_page_size"`
	MaxPageSize       int    `yaml:"max_page_size"`
	MaxBatchSize      int    `yaml:"max_batch_size"`
	OverfetchFactor   int    `yaml:"overfetch_factor"`
	PaperCollection   string `yaml:"paper_collection"`
	FacultyCollection string `yaml:"faculty_collection"`
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
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.MaxChunkTokens <= 0 {
		c.Embedding.MaxChunkTokens = 512
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1000
	}
	if c.Retrieval.HNSWM <= 0 {
		c.Retrieval.HNSWM = 32
	}
	if c.Retrieval.HNSWEFConstruct <= 0 {
		c.Retrieval.HNSWEFConstruct = 400
	}
	if c.Retrieval.DefaultPageSize <= 0 {
		c.Retrieval.DefaultPageSize = 20
	}
	if c.Retrieval.MaxPageSize <= 0 {
		c.Retrieval.MaxPageSize = 100
	}
	if c.Retrieval.MaxBatchSize <= 0 {
		c.Retrieval.MaxBatchSize = 100
	}
	if c.Retrieval.OverfetchFactor <= 0 {
		c.Retrieval.OverfetchFactor = 2
	}
	if c.Retrieval.PaperCollection == "" {
		c.Retrieval.PaperCollection = "papers"
	}
	if c.Retrieval.FacultyCollection == "" {
		c.Retrieval.FacultyCollection = "faculty"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
		// no connection settings
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	for name, w := range c.Embedding.FieldWeights {
		if w <= 0 {
			return fmt.Errorf("embedding.field_weights.%s must be positive, got %g", name, w)
		}
	}
	if c.Generation.InputRatePer1K < 0 || c.Generation.OutputRatePer1K < 0 {
		return fmt.Errorf("generation rates must not be negative")
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

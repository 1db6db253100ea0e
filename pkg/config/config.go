package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/winequality/pkg/mlmodel"
	"github.com/mimir-aip/winequality/pkg/models"
)

// Config holds the application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Port        string `yaml:"port"`

	DataPath    string            `yaml:"data_path"`
	SourceType  models.SourceType `yaml:"source_type"` // inferred from data_path when empty
	Delimiter   string            `yaml:"delimiter"`
	Query       string            `yaml:"query"`
	ModelPath   string            `yaml:"model_path"`
	MetricsPath string            `yaml:"metrics_path"`

	RegistryPath    string `yaml:"registry_path"` // empty disables the run registry
	RetrainSchedule string `yaml:"retrain_schedule"`
	CacheSize       int    `yaml:"cache_size"`

	Seed            int64                  `yaml:"seed"`
	TestSize        float64                `yaml:"test_size"`
	KBest           int                    `yaml:"k_best"`
	Algorithms      []models.AlgorithmKind `yaml:"algorithms"`
	Balances        []models.BalanceKind   `yaml:"balance_methods"`
	Hyperparameters models.Hyperparameters `yaml:"hyperparameters"`
}

// Default returns the built-in configuration
func Default() *Config {
	opts := mlmodel.DefaultOptions()
	return &Config{
		Environment:     "development",
		LogLevel:        "info",
		LogFormat:       "text",
		Port:            "8000",
		DataPath:        filepath.Join("data", "raw", "winequality-red.csv"),
		ModelPath:       opts.ModelPath,
		MetricsPath:     opts.MetricsPath,
		RegistryPath:    filepath.Join("data", "registry.db"),
		CacheSize:       4,
		Seed:            opts.Seed,
		TestSize:        opts.TestSize,
		KBest:           opts.KBest,
		Algorithms:      opts.Algorithms,
		Balances:        opts.Balances,
		Hyperparameters: opts.Hyperparameters,
	}
}

// LoadConfig loads configuration from the file named by WINE_CONFIG, if any, and the environment
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("WINE_CONFIG"))
}

// Load builds the configuration from defaults, then the YAML file at path when path is not
// empty, then environment variables.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NotFoundError("config file", path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, models.NewConfigurationError("config", path, "invalid YAML: %v", err)
		}
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(c *Config) {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Port = getEnv("PORT", c.Port)
	c.DataPath = getEnv("DATA_PATH", c.DataPath)
	c.SourceType = models.SourceType(getEnv("DATA_SOURCE_TYPE", string(c.SourceType)))
	c.Delimiter = getEnv("DATA_DELIMITER", c.Delimiter)
	c.Query = getEnv("DATA_QUERY", c.Query)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.MetricsPath = getEnv("METRICS_PATH", c.MetricsPath)
	c.RegistryPath = getEnv("REGISTRY_PATH", c.RegistryPath)
	c.RetrainSchedule = getEnv("RETRAIN_SCHEDULE", c.RetrainSchedule)
	c.CacheSize = getEnvAsInt("MODEL_CACHE_SIZE", c.CacheSize)
	c.Seed = int64(getEnvAsInt("RANDOM_SEED", int(c.Seed)))
	c.TestSize = getEnvAsFloat("TEST_SIZE", c.TestSize)
	c.KBest = getEnvAsInt("K_BEST", c.KBest)
	if list := getEnvAsList("ALGORITHMS"); list != nil {
		c.Algorithms = make([]models.AlgorithmKind, len(list))
		for i, v := range list {
			c.Algorithms[i] = models.AlgorithmKind(v)
		}
	}
	if list := getEnvAsList("BALANCE_METHODS"); list != nil {
		c.Balances = make([]models.BalanceKind, len(list))
		for i, v := range list {
			c.Balances[i] = models.BalanceKind(v)
		}
	}
}

// Validate checks every setting
func (c *Config) Validate() error {
	const op = "config"

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return models.NewConfigurationError(op, "log_level", "unknown level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return models.NewConfigurationError(op, "log_format", "unknown format %q", c.LogFormat)
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return models.NewConfigurationError(op, "port", "invalid port %q", c.Port)
	}
	if c.ModelPath == "" {
		return models.NewConfigurationError(op, "model_path", "model path is required")
	}
	if c.MetricsPath == "" {
		return models.NewConfigurationError(op, "metrics_path", "metrics path is required")
	}
	if c.CacheSize < 1 {
		return models.NewConfigurationError(op, "cache_size", "must be at least 1, got %d", c.CacheSize)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return models.NewConfigurationError(op, "test_size", "must be in (0, 1), got %v", c.TestSize)
	}
	if c.KBest < 1 {
		return models.NewConfigurationError(op, "k_best", "must be at least 1, got %d", c.KBest)
	}
	if len(c.Algorithms) == 0 {
		return models.NewConfigurationError(op, "algorithms", "at least one algorithm is required")
	}
	for _, a := range c.Algorithms {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if len(c.Balances) == 0 {
		return models.NewConfigurationError(op, "balance_methods", "at least one balance method is required")
	}
	for _, b := range c.Balances {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	if err := c.Hyperparameters.Validate(); err != nil {
		return err
	}
	if c.RetrainSchedule != "" {
		if _, err := cron.ParseStandard(c.RetrainSchedule); err != nil {
			return models.NewConfigurationError(op, "retrain_schedule", "invalid cron expression: %v", err)
		}
	}
	if c.SourceType != "" {
		if err := c.DataSource().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DataSource describes the configured training data
func (c *Config) DataSource() models.DataSource {
	return models.DataSource{
		Type:      c.sourceType(),
		Path:      c.DataPath,
		Delimiter: c.Delimiter,
		Query:     c.Query,
	}
}

// sourceType returns the explicit source type or infers one from the data path
func (c *Config) sourceType() models.SourceType {
	if c.SourceType != "" {
		return c.SourceType
	}
	return InferSourceType(c.DataPath)
}

// InferSourceType guesses a source type from a path, URL or DSN
func InferSourceType(path string) models.SourceType {
	lower := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return models.SourceTypeHTTP
	case strings.HasPrefix(lower, "s3://"):
		return models.SourceTypeS3
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.HasPrefix(lower, "sqlite://"):
		return models.SourceTypeSQL
	}
	switch filepath.Ext(lower) {
	case ".json":
		return models.SourceTypeJSON
	case ".parquet":
		return models.SourceTypeParquet
	case ".xml":
		return models.SourceTypeXML
	case ".db", ".sqlite", ".sqlite3":
		return models.SourceTypeSQL
	default:
		return models.SourceTypeCSV
	}
}

// TrainingOptions converts the configuration into trainer options
func (c *Config) TrainingOptions() mlmodel.Options {
	return mlmodel.Options{
		Seed:            c.Seed,
		TestSize:        c.TestSize,
		KBest:           c.KBest,
		Algorithms:      c.Algorithms,
		Balances:        c.Balances,
		Hyperparameters: c.Hyperparameters,
		ModelPath:       c.ModelPath,
		MetricsPath:     c.MetricsPath,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, returning nil when it is unset
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

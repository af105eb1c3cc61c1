package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server            ServerConfig      `mapstructure:"server"`
	Catalog           CatalogConfig     `mapstructure:"catalog"`
	Artifacts         ArtifactsConfig   `mapstructure:"artifacts"`
	Training          TrainingConfig    `mapstructure:"training"`
	Calibration       CalibrationConfig `mapstructure:"calibration"`
	DisplaySimilarity SimilarityConfig  `mapstructure:"display_similarity"`
	Display           DisplayConfig     `mapstructure:"display"`
	Cache             CacheConfig       `mapstructure:"cache"`
	RateLimit         RateLimitConfig   `mapstructure:"ratelimit"`
	Log               LogConfig         `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig locates the phone catalog
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ArtifactsConfig locates the trained model files
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// TrainingConfig holds the training job settings
type TrainingConfig struct {
	Epochs          int     `mapstructure:"epochs"`
	BatchSize       int     `mapstructure:"batch_size"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	Patience        int     `mapstructure:"patience"`
	ValidationSplit float64 `mapstructure:"validation_split"`
	Seed            int64   `mapstructure:"seed"`
	HiddenLayers    []int   `mapstructure:"hidden_layers"`
	Dropout         float64 `mapstructure:"dropout"`
}

// SimilarityConfig holds one spec-distance weighting
type SimilarityConfig struct {
	Weights   []float64 `mapstructure:"weights"` // ram, front camera, back camera, battery (per 1000 mAh), screen
	Threshold float64   `mapstructure:"threshold"`
	Limit     int       `mapstructure:"limit"`
}

// CalibrationConfig holds the comparable anchor and band settings
type CalibrationConfig struct {
	SimilarityConfig `mapstructure:",squash"`
	Epsilon          float64 `mapstructure:"epsilon"`
	BandLower        float64 `mapstructure:"band_lower"`
	BandUpper        float64 `mapstructure:"band_upper"`
}

// DisplayConfig holds display currency settings
type DisplayConfig struct {
	Currency string  `mapstructure:"currency"`
	USDRate  float64 `mapstructure:"usd_rate"` // display currency units per USD
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings: PRICELENS_CACHE_REDIS_URL -> cache.redis_url
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env if present. Variables already set in the
// environment are not overridden.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Data locations
	v.SetDefault("catalog.path", "data/phones.tsv")
	v.SetDefault("artifacts.dir", "artifacts")

	// Training defaults
	v.SetDefault("training.epochs", 100)
	v.SetDefault("training.batch_size", 32)
	v.SetDefault("training.learning_rate", 0.001)
	v.SetDefault("training.patience", 10)
	v.SetDefault("training.validation_split", 0.2)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.hidden_layers", []int{64, 32, 16})
	v.SetDefault("training.dropout", 0.2)

	// Calibration: anchor on up to 3 comparables closer than 3, band 0.98-1.05
	v.SetDefault("calibration.weights", []float64{0.25, 0.15, 0.20, 0.20, 0.20})
	v.SetDefault("calibration.threshold", 3.0)
	v.SetDefault("calibration.limit", 3)
	v.SetDefault("calibration.epsilon", 0.1)
	v.SetDefault("calibration.band_lower", 0.98)
	v.SetDefault("calibration.band_upper", 1.05)

	// Similar phones listing: up to 5 closer than 5
	v.SetDefault("display_similarity.weights", []float64{0.20, 0.15, 0.15, 0.25, 0.25})
	v.SetDefault("display_similarity.threshold", 5.0)
	v.SetDefault("display_similarity.limit", 5)

	// Display currency
	v.SetDefault("display.currency", "IDR")
	v.SetDefault("display.usd_rate", 15800.0)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "pricelens:")
	v.SetDefault("cache.ttl", "1h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required (set PRICELENS_CATALOG_PATH)")
	}

	if config.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts directory is required (set PRICELENS_ARTIFACTS_DIR)")
	}

	if config.Display.USDRate <= 0 {
		return fmt.Errorf("display USD rate must be positive, got: %v", config.Display.USDRate)
	}

	if err := validateSimilarity("calibration", config.Calibration.SimilarityConfig); err != nil {
		return err
	}
	if err := validateSimilarity("display_similarity", config.DisplaySimilarity); err != nil {
		return err
	}

	if config.Calibration.Epsilon <= 0 {
		return fmt.Errorf("calibration epsilon must be positive, got: %v", config.Calibration.Epsilon)
	}
	if config.Calibration.BandLower <= 0 || config.Calibration.BandLower > 1 || config.Calibration.BandUpper < 1 {
		return fmt.Errorf("calibration band must satisfy 0 < lower <= 1 <= upper, got: [%v, %v]",
			config.Calibration.BandLower, config.Calibration.BandUpper)
	}

	if s := config.Training.ValidationSplit; s <= 0 || s >= 1 {
		return fmt.Errorf("training validation split must be in (0, 1), got: %v", s)
	}
	if len(config.Training.HiddenLayers) == 0 {
		return fmt.Errorf("training needs at least one hidden layer")
	}
	for _, units := range config.Training.HiddenLayers {
		if units <= 0 {
			return fmt.Errorf("hidden layer widths must be positive, got: %v", config.Training.HiddenLayers)
		}
	}
	if d := config.Training.Dropout; d < 0 || d >= 1 {
		return fmt.Errorf("training dropout must be in [0, 1), got: %v", d)
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	return nil
}

func validateSimilarity(name string, s SimilarityConfig) error {
	if len(s.Weights) != 5 {
		return fmt.Errorf("%s weights need 5 values (ram, front camera, back camera, battery, screen), got %d", name, len(s.Weights))
	}
	for _, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("%s weights must be non-negative, got: %v", name, s.Weights)
		}
	}
	if s.Threshold <= 0 {
		return fmt.Errorf("%s threshold must be positive, got: %v", name, s.Threshold)
	}
	if s.Limit <= 0 {
		return fmt.Errorf("%s limit must be positive, got: %d", name, s.Limit)
	}
	return nil
}

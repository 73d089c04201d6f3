package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"fire-news/internal/database"
	"fire-news/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathEnv points at an optional YAML config file
	ConfigPathEnv = "FIRENEWS_CONFIG"

	ScoringModeHTTP   = "http"
	ScoringModeScript = "script"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   database.Config  `yaml:"database"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Moderation ModerationConfig `yaml:"moderation"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Rescore    RescoreConfig    `yaml:"rescore"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	Mode         string        `yaml:"mode"` // gin mode: debug, release, test
	CORSOrigins  []string      `yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ScoringConfig describes how the FIRE classifier is reached.
type ScoringConfig struct {
	Mode         string        `yaml:"mode"`
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	PythonPath   string        `yaml:"python_path"`
	ScriptPath   string        `yaml:"script_path"`
	ModelVersion string        `yaml:"model_version"`
}

// ModerationConfig tunes the queue and the override display.
type ModerationConfig struct {
	ReviewCategories    []string `yaml:"review_categories"`
	OverrideScorePolicy string   `yaml:"override_score_policy"`
}

// AuthConfig holds the moderator token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RescoreConfig schedules retries for articles that could not be scored.
// An empty Cron disables the job.
type RescoreConfig struct {
	Cron      string `yaml:"cron"`
	BatchSize int    `yaml:"batch_size"`
}

// Default returns the configuration used when nothing is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			Mode:         "debug",
			CORSOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: database.DefaultConfig(),
		Scoring: ScoringConfig{
			Mode:         ScoringModeHTTP,
			Endpoint:     "http://localhost:5000",
			Timeout:      10 * time.Second,
			PythonPath:   "python3",
			ScriptPath:   "ml/predict.py",
			ModelVersion: "v1.0.0",
		},
		Moderation: ModerationConfig{
			ReviewCategories:    []string{string(models.CategoryMisleading)},
			OverrideScorePolicy: string(models.PolicyDerive),
		},
		Auth: AuthConfig{
			Issuer:   "fire-news",
			TokenTTL: 12 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info"},
		Rescore: RescoreConfig{BatchSize: 25},
	}
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Mode = getEnv("GIN_MODE", c.Server.Mode)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)

	c.Scoring.Mode = getEnv("SCORING_MODE", c.Scoring.Mode)
	c.Scoring.Endpoint = getEnv("SCORING_ENDPOINT", c.Scoring.Endpoint)
	c.Scoring.APIKey = getEnv("SCORING_API_KEY", c.Scoring.APIKey)
	c.Scoring.PythonPath = getEnv("PYTHON_PATH", c.Scoring.PythonPath)
	c.Scoring.ScriptPath = getEnv("SCORING_SCRIPT", c.Scoring.ScriptPath)
	timeout, err := getEnvDuration("SCORING_TIMEOUT", c.Scoring.Timeout)
	if err != nil {
		return err
	}
	c.Scoring.Timeout = timeout

	if categories := os.Getenv("REVIEW_CATEGORIES"); categories != "" {
		c.Moderation.ReviewCategories = splitList(categories)
	}
	c.Moderation.OverrideScorePolicy = getEnv("OVERRIDE_SCORE_POLICY", c.Moderation.OverrideScorePolicy)

	c.Auth.JWTSecret = getEnv("MODERATOR_JWT_SECRET", c.Auth.JWTSecret)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Rescore.Cron = getEnv("RESCORE_CRON", c.Rescore.Cron)
	return nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	switch c.Scoring.Mode {
	case ScoringModeHTTP:
		if c.Scoring.Endpoint == "" {
			return fmt.Errorf("config: scoring.endpoint is required in http mode")
		}
	case ScoringModeScript:
		if c.Scoring.ScriptPath == "" {
			return fmt.Errorf("config: scoring.script_path is required in script mode")
		}
	default:
		return fmt.Errorf("config: unknown scoring mode %q", c.Scoring.Mode)
	}
	if c.Scoring.Timeout <= 0 {
		return fmt.Errorf("config: scoring.timeout must be positive")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("config: database.timeout must be positive")
	}

	if _, err := c.ReviewCategories(); err != nil {
		return err
	}
	if _, err := models.ParseScorePolicy(c.Moderation.OverrideScorePolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Server.Mode == "release" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: MODERATOR_JWT_SECRET is required in release mode")
	}
	return nil
}

// ReviewCategories returns the needs-review band as typed categories.
func (c Config) ReviewCategories() ([]models.Category, error) {
	out := make([]models.Category, 0, len(c.Moderation.ReviewCategories))
	for _, name := range c.Moderation.ReviewCategories {
		category, err := models.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("config: moderation.review_categories: %w", err)
		}
		out = append(out, category)
	}
	return out, nil
}

// ScorePolicy returns the parsed override score policy.
func (c Config) ScorePolicy() models.ScorePolicy {
	policy, err := models.ParseScorePolicy(c.Moderation.OverrideScorePolicy)
	if err != nil {
		return models.PolicyDerive
	}
	return policy
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

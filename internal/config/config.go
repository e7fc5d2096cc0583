package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"qcalab/domain/qca"
	"qcalab/internal/conversion"
	"qcalab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig    `yaml:"database"`
	Server    ServerConfig      `yaml:"server"`
	Logging   LoggingConfig     `yaml:"logging"`
	QCA       qca.Configuration `yaml:"qca"`
	Selection SelectionConfig   `yaml:"selection"`
}

// SelectionConfig chooses how codes are split into conditions and outcomes
type SelectionConfig struct {
	Policy      string   `yaml:"policy"` // core_category, frequency or explicit
	CoreMarkers []string `yaml:"core_markers"`
	Outcomes    []string `yaml:"outcomes"` // Code names, explicit policy only
}

// NewPolicy builds the configured selection policy
func (s SelectionConfig) NewPolicy() (conversion.SelectionPolicy, error) {
	return conversion.NewPolicy(s.Policy, s.CoreMarkers, s.Outcomes)
}

// DatabaseConfig holds run-store connection settings
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	URL    string `yaml:"url"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LoggingConfig holds log level and output format
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Database:  DatabaseConfig{Driver: "postgres"},
		Server:    ServerConfig{Port: "8080"},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		QCA:       qca.DefaultConfiguration(),
		Selection: SelectionConfig{Policy: conversion.PolicyCoreCategory},
	}
}

// Load reads .env (if present), the YAML file named by QCA_CONFIG_FILE (if
// set), then environment variables, and validates the result.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit YAML file. An empty path falls back to
// QCA_CONFIG_FILE.
func LoadFrom(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()
	if path == "" {
		path = os.Getenv("QCA_CONFIG_FILE")
	}
	if path != "" {
		if err := config.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, errors.Wrap(err, "failed to load environment configuration")
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// MergeFile overlays a YAML file onto the configuration. Keys absent from the
// file keep their current values.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse %s: %w", path, err))
	}
	return nil
}

// ApplyEnv overrides values from environment variables
func (c *Config) ApplyEnv() error {
	c.Database.Driver = getEnvOrDefault("DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnvOrDefault("DATABASE_URL", c.Database.URL)
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)

	c.Selection.Policy = getEnvOrDefault("QCA_SELECTION_POLICY", c.Selection.Policy)
	if v := os.Getenv("QCA_SELECTION_OUTCOMES"); v != "" {
		c.Selection.Outcomes = splitList(v)
	}
	if v := os.Getenv("QCA_CORE_MARKERS"); v != "" {
		c.Selection.CoreMarkers = splitList(v)
	}

	q := &c.QCA
	q.DefaultAnalysisMethod = getEnvOrDefault("QCA_ANALYSIS_METHOD", q.DefaultAnalysisMethod)
	q.CalibrationMethod = getEnvOrDefault("QCA_CALIBRATION_METHOD", q.CalibrationMethod)
	q.OutputFormat = getEnvOrDefault("QCA_OUTPUT_FORMAT", q.OutputFormat)

	var err error
	if q.TruthTableConsistencyThreshold, err = getEnvFloat("QCA_CONSISTENCY_THRESHOLD", q.TruthTableConsistencyThreshold); err != nil {
		return err
	}
	if q.TruthTableFrequencyThreshold, err = getEnvInt("QCA_FREQUENCY_THRESHOLD", q.TruthTableFrequencyThreshold); err != nil {
		return err
	}
	if q.MaxConditions, err = getEnvInt("QCA_MAX_CONDITIONS", q.MaxConditions); err != nil {
		return err
	}
	if q.Parallelism, err = getEnvInt("QCA_PARALLELISM", q.Parallelism); err != nil {
		return err
	}
	if q.GenerateMinimization, err = getEnvBool("QCA_GENERATE_MINIMIZATION", q.GenerateMinimization); err != nil {
		return err
	}
	if q.ReduceFormula, err = getEnvBool("QCA_REDUCE_FORMULA", q.ReduceFormula); err != nil {
		return err
	}
	return nil
}

// RequireDatabase fails when no run store is configured
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	return nil
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", config.Database.Driver))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "console":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported log format %q", config.Logging.Format))
	}
	if err := config.QCA.Validate(); err != nil {
		return errors.FromDomain(err)
	}
	if _, err := config.Selection.NewPolicy(); err != nil {
		return errors.FromDomain(err)
	}
	return nil
}

// splitList parses a comma separated env value
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a number, got %q", key, value))
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.ConfigInvalid(fmt.Sprintf("%s must be a boolean, got %q", key, value))
	}
	return b, nil
}

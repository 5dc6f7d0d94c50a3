// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration. Validation rules live on
// the struct tags and are enforced by Validate.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Database DatabaseConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	// Backend selects the storage engine: "sqlite" or "badger".
	Backend string `validate:"required,oneof=sqlite badger"`
	// Path is the database location: a file for sqlite, a directory for
	// badger. Defaults under ~/QuillPost.
	Path string `validate:"required"`
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Flags holds the raw command-line values. Kept separate from flag
// registration so tests can exercise precedence without touching the
// global flag set.
type Flags struct {
	Environment string
	LogLevel    string
	DBBackend   string
	DBPath      string
	EnvFile     string
}

// RegisterFlags wires the config flags into the given flag set. Each
// command registers on its own set so command-specific flags can coexist.
func RegisterFlags(fs *flag.FlagSet, f *Flags) {
	fs.StringVar(&f.Environment, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.DBBackend, "db-backend", "", "Storage backend (sqlite, badger)")
	fs.StringVar(&f.DBPath, "db-path", "", "Database path")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")
}

// Load builds configuration from the parsed flags with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(f Flags) (*Config, error) {
	// Load .env file if it exists (silently ignore if not found).
	envFile := f.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	_ = loadEnvFile(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.Environment, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(f.LogLevel, "LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Backend: getConfigValue(f.DBBackend, "DB_BACKEND", BackendSQLite),
			Path:    getConfigValue(f.DBPath, "DB_PATH", ""),
		},
	}

	// Expand and default the database path.
	if err := cfg.expandDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and returns the first violation as a
// readable error.
func (c *Config) Validate() error {
	// Level comparisons are case-insensitive everywhere else too.
	c.Logger.Level = strings.ToLower(c.Logger.Level)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	e := verrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", e.Field())
	case "oneof":
		return fmt.Errorf("invalid %s: %v (must be one of: %s)", e.Field(), e.Value(), e.Param())
	default:
		return fmt.Errorf("invalid %s: %v", e.Field(), e.Value())
	}
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDatabasePath expands ~ and makes the path absolute. The default
// lives under the user's home directory, with the sqlite file and badger
// directory kept apart so switching backends never corrupts either.
func (c *Config) expandDatabasePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, "QuillPost", "badger")
	if c.Database.Backend == BackendSQLite {
		defaultPath = filepath.Join(homeDir, "QuillPost", "quill.db")
	}

	expanded, err := expandPath(c.Database.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Database.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}

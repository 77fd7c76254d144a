// Package config loads application configuration from .env files and
// environment variables via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Jobs     JobsConfig
	Metadata MetadataConfig
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host        string
	Port        int
	MetricsPort int // port for the Prometheus metrics HTTP server
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// JobsConfig holds the intervals of the periodic background jobs.
// An interval of zero disables the job's periodic run; it stays reachable
// through its trigger endpoint.
type JobsConfig struct {
	OverdueRemindersInterval time.Duration
	MonthlyReportInterval    time.Duration
	InventoryCheckInterval   time.Duration
	MetadataFetchInterval    time.Duration
}

// MetadataConfig represents the external book-metadata API configuration.
type MetadataConfig struct {
	BaseURL string
	Timeout time.Duration
}

// findProjectRoot finds the project root directory by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration.
// env: environment name (dev, test, prod).
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot)

	// Config file is optional; environment variables take precedence.
	_ = viper.ReadInConfig()
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("METRICS_PORT", 9090)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "pagekeep")
	viper.SetDefault("DB_NAME", "pagekeep_dev")
	viper.SetDefault("DB_SSLMODE", "disable")

	// Job intervals in minutes; zero disables the periodic run.
	viper.SetDefault("JOB_OVERDUE_REMINDERS_MINUTES", 24*60)
	viper.SetDefault("JOB_MONTHLY_REPORT_MINUTES", 0)
	viper.SetDefault("JOB_INVENTORY_CHECK_MINUTES", 24*60)
	viper.SetDefault("JOB_METADATA_FETCH_MINUTES", 60)

	viper.SetDefault("METADATA_BASE_URL", "https://openlibrary.org")
	viper.SetDefault("METADATA_TIMEOUT_SECONDS", 10)

	return nil
}

// Load loads configuration from viper.
func Load() (*Config, error) {
	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	config := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("SERVER_HOST"),
			Port:        viper.GetInt("SERVER_PORT"),
			MetricsPort: viper.GetInt("METRICS_PORT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: dbPassword,
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Jobs: JobsConfig{
			OverdueRemindersInterval: minutes("JOB_OVERDUE_REMINDERS_MINUTES"),
			MonthlyReportInterval:    minutes("JOB_MONTHLY_REPORT_MINUTES"),
			InventoryCheckInterval:   minutes("JOB_INVENTORY_CHECK_MINUTES"),
			MetadataFetchInterval:    minutes("JOB_METADATA_FETCH_MINUTES"),
		},
		Metadata: MetadataConfig{
			BaseURL: viper.GetString("METADATA_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("METADATA_TIMEOUT_SECONDS")) * time.Second,
		},
	}

	return config, nil
}

func minutes(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Minute
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Data   DataConfig
	CDS    CDSConfig
	Plume  PlumeConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port    int
	GinMode string // debug, release, test
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// DataConfig locates the local data stores
type DataConfig struct {
	// Dir is the root for downloaded satellite and wind files
	Dir string
	// Database is the sqlite file holding products, observations and runs
	Database string
	// TemisDir caches monthly mean files
	TemisDir string
	// RegionsDir holds the bundled *.geo.json region files
	RegionsDir string
}

// CDSConfig holds Climate Data Store credentials
type CDSConfig struct {
	UID string
	Key string
}

// PlumeConfig holds the tunables of the plume emission fit
type PlumeConfig struct {
	Width      float64 // km
	Decay      float64 // 1/h
	Resolution float64 // degrees
	Damping    float64
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	// Set config file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.space-emissions")

	// Set defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.ginmode", "release")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("data.database", "./data/emissions.db")
	viper.SetDefault("data.temisdir", "./data/temis")
	viper.SetDefault("data.regionsdir", "./regions")
	viper.SetDefault("plume.width", 7.0)
	viper.SetDefault("plume.decay", 1.0/3.0)
	viper.SetDefault("plume.resolution", 0.2)
	viper.SetDefault("plume.damping", 0.007)

	// Read from environment variables, e.g. SPACE_EMISSIONS_CDS_KEY
	viper.SetEnvPrefix("SPACE_EMISSIONS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger creates a new slog.Logger based on the configuration
func (c *Config) NewLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler options
	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Choose handler based on format
	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default: // "text" or anything else
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Package config provides configuration management for the clipforge agent.
// Configuration is loaded from environment variables (and an optional .env
// file) with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort           = 8787
	DefaultLogLevel       = "info"
	DefaultDataDir        = ".clipforge"
	DefaultLang           = "en"
	DefaultExportDelayMs  = 3000
	DefaultMaxUploadBytes = 2 << 30 // 2GB
	DefaultEDLFrameRate   = 30.0

	// Environment variable names
	EnvPort           = "CLIPFORGE_PORT"
	EnvLogLevel       = "CLIPFORGE_LOG_LEVEL"
	EnvDataDir        = "CLIPFORGE_DATA_DIR"
	EnvHeadless       = "CLIPFORGE_HEADLESS"
	EnvLang           = "CLIPFORGE_LANG"
	EnvAnalysisURL    = "CLIPFORGE_ANALYSIS_URL"
	EnvAnalysisToken  = "CLIPFORGE_ANALYSIS_TOKEN"
	EnvExportDir      = "CLIPFORGE_EXPORT_DIR"
	EnvExportDelayMs  = "CLIPFORGE_EXPORT_DELAY_MS"
	EnvMaxUploadBytes = "CLIPFORGE_MAX_UPLOAD_BYTES"

	// Database filename
	DBFilename = "clipforge.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	Lang() string
	AnalysisURL() string
	AnalysisToken() string
	ExportDir() string
	ExportDelay() time.Duration
	MaxUploadBytes() int64
	EDLFrameRate() float64
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	headless       bool
	lang           string
	analysisURL    string
	analysisToken  string
	exportDir      string
	exportDelay    time.Duration
	maxUploadBytes int64
}

// New creates a new EnvConfig with defaults and environment variable overrides.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		lang:           DefaultLang,
		exportDelay:    DefaultExportDelayMs * time.Millisecond,
		maxUploadBytes: DefaultMaxUploadBytes,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if l := os.Getenv(EnvLang); l != "" {
		cfg.lang = strings.ToLower(l)
	}

	cfg.analysisURL = strings.TrimRight(os.Getenv(EnvAnalysisURL), "/")
	cfg.analysisToken = os.Getenv(EnvAnalysisToken)
	cfg.exportDir = os.Getenv(EnvExportDir)

	if d := os.Getenv(EnvExportDelayMs); d != "" {
		ms, err := strconv.Atoi(d)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExportDelayMs, err)
		}
		if ms < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", EnvExportDelayMs)
		}
		cfg.exportDelay = time.Duration(ms) * time.Millisecond
	}

	if m := os.Getenv(EnvMaxUploadBytes); m != "" {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxUploadBytes, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvMaxUploadBytes)
		}
		cfg.maxUploadBytes = n
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Headless disables the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) Lang() string {
	return c.lang
}

// AnalysisURL is the base URL of the remote analysis service. Empty means the
// built-in fixture clips are used.
func (c *EnvConfig) AnalysisURL() string {
	return c.analysisURL
}

func (c *EnvConfig) AnalysisToken() string {
	return c.analysisToken
}

// ExportDir enables EDL exports into this directory when set.
func (c *EnvConfig) ExportDir() string {
	return c.exportDir
}

func (c *EnvConfig) ExportDelay() time.Duration {
	return c.exportDelay
}

func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

func (c *EnvConfig) EDLFrameRate() float64 {
	return DefaultEDLFrameRate
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

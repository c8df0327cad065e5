package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// LayoutConfig tunes page rendering and break-image classification.
type LayoutConfig struct {
	JPEGQuality  int
	InlinePrefix string
	PagePrefix   string
}

// OutputConfig controls where and how the PDF is written.
type OutputConfig struct {
	Dir        string
	OnExists   string // "fail"|"overwrite"|"rename"
	TempMaxAge time.Duration
}

// ServerConfig defines the HTTP job API.
type ServerConfig struct {
	Port      string
	RedisURL  string // empty keeps job status in memory
	QueueSize int
	StatusTTL time.Duration
	InputRoot string // jobs may only read below this folder; empty allows any
}

// StorageConfig defines the optional S3 output sink.
type StorageConfig struct {
	S3Enabled bool
	S3Region  string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Layout  LayoutConfig
	Output  OutputConfig
	Server  ServerConfig
	Storage StorageConfig
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/casebinder.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_casebinder",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Layout = LayoutConfig{
		JPEGQuality:  parseInt(getEnv("JPEG_QUALITY", "90"), 90),
		InlinePrefix: getEnv("INLINE_BREAK_PREFIX", "NEWLINE"),
		PagePrefix:   getEnv("PAGE_BREAK_PREFIX", "NEWPAGE"),
	}

	cfg.Output = OutputConfig{
		Dir:        getEnv("OUTPUT_DIR", ""),
		OnExists:   strings.ToLower(getEnv("ON_EXISTS", "fail")),
		TempMaxAge: parseDuration(getEnv("TEMP_MAX_AGE", "1h"), time.Hour),
	}

	cfg.Server = ServerConfig{
		Port:      getEnv("PORT", "8080"),
		RedisURL:  getEnv("REDIS_URL", ""),
		QueueSize: parseInt(getEnv("JOB_QUEUE_SIZE", "16"), 16),
		StatusTTL: parseDuration(getEnv("JOB_STATUS_TTL", "24h"), 24*time.Hour),
		InputRoot: getEnv("INPUT_ROOT", ""),
	}

	cfg.Storage = StorageConfig{
		S3Enabled: parseBool(getEnv("S3_ENABLED", "0")),
		S3Region:  getEnv("AWS_REGION", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Cache backends.
const (
	CacheBackendFile     = "file"
	CacheBackendSQLite   = "sqlite"
	CacheBackendRedis    = "redis"
	CacheBackendMinIO    = "minio"
	CacheBackendPostgres = "postgres"
)

type Config struct {
	Server        ServerConfig
	App           AppConfig
	Cache         CacheConfig
	FFmpeg        FFmpegConfig
	Transcription TranscriptionConfig
	OpenAI        OpenAIConfig
	Summary       SummaryConfig
	RateLimit     RateLimitConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type AppConfig struct {
	DataDir     string `envconfig:"VIDBRIEF_DATA_DIR" default:"data"`
	TempDir     string `envconfig:"VIDBRIEF_TEMP_DIR"`
	RecentLimit int    `envconfig:"VIDBRIEF_RECENT_LIMIT" default:"10"`
	LogLevel    string `envconfig:"VIDBRIEF_LOG_LEVEL" default:"info"`
	LogFile     string `envconfig:"VIDBRIEF_LOG_FILE"`
}

// TranscriptsDir is where the file cache backend keeps its records.
func (c AppConfig) TranscriptsDir() string {
	return filepath.Join(c.DataDir, "transcripts")
}

// RecentFilesPath is the JSON file holding the recent-files list.
func (c AppConfig) RecentFilesPath() string {
	return filepath.Join(c.DataDir, "state", "recent_videos.json")
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to info.
func (c AppConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type CacheConfig struct {
	Backend  string `envconfig:"CACHE_BACKEND" default:"file"`
	Redis    RedisConfig
	MinIO    MinIOConfig
	Database DatabaseConfig
	SQLite   SQLiteConfig
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"vidbrief"`
	Prefix    string `envconfig:"MINIO_PREFIX" default:"transcripts"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"vidbrief"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"vidbrief"`
	DBName   string `envconfig:"POSTGRES_DB" default:"vidbrief"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type SQLiteConfig struct {
	// Path defaults to <DataDir>/cache.db when empty.
	Path string `envconfig:"SQLITE_PATH"`
}

type FFmpegConfig struct {
	// Bin is an explicit ffmpeg path. When empty, ffmpeg is looked up on PATH.
	Bin string `envconfig:"FFMPEG_BIN"`
}

type TranscriptionConfig struct {
	Backend    string        `envconfig:"TRANSCRIPTION_BACKEND" default:"remote"`
	Model      string        `envconfig:"TRANSCRIPTION_MODEL"`
	Device     string        `envconfig:"TRANSCRIPTION_DEVICE" default:"cpu"`
	Precision  string        `envconfig:"TRANSCRIPTION_PRECISION" default:"int8"`
	ModelDir   string        `envconfig:"TRANSCRIPTION_MODEL_DIR"`
	Language   string        `envconfig:"TRANSCRIPTION_LANGUAGE"`
	PythonPath string        `envconfig:"TRANSCRIPTION_PYTHON" default:"python3"`
	ScriptPath string        `envconfig:"TRANSCRIPTION_SCRIPT" default:"scripts/faster_whisper_stream.py"`
	Timeout    time.Duration `envconfig:"TRANSCRIPTION_TIMEOUT" default:"0s"`
}

// ModelOrDefault returns the configured model or the backend's default.
func (c TranscriptionConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Backend == "local" {
		return "small"
	}
	return "whisper-1"
}

type OpenAIConfig struct {
	APIKey  string `envconfig:"OPENAI_API_KEY"`
	BaseURL string `envconfig:"OPENAI_BASE_URL"`
}

type SummaryConfig struct {
	Provider      string        `envconfig:"SUMMARY_PROVIDER" default:"openai"`
	Model         string        `envconfig:"OPENAI_SUMMARY_MODEL"`
	Temperature   *float32      `envconfig:"SUMMARY_TEMPERATURE"`
	MaxTokens     int           `envconfig:"SUMMARY_MAX_TOKENS" default:"2500"`
	GeminiAPIKeys []string      `envconfig:"GEMINI_API_KEYS"`
	Timeout       time.Duration `envconfig:"SUMMARY_TIMEOUT" default:"0s"`
}

type RateLimitConfig struct {
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `envconfig:"RATE_LIMIT_RPM" default:"30"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	c.Summary.Provider = strings.ToLower(strings.TrimSpace(c.Summary.Provider))
	if c.Cache.SQLite.Path == "" {
		c.Cache.SQLite.Path = filepath.Join(c.App.DataDir, "cache.db")
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendSQLite, CacheBackendRedis, CacheBackendMinIO, CacheBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be one of file, sqlite, redis, minio, postgres; got %q", c.Cache.Backend))
	}

	switch c.Transcription.Backend {
	case "remote":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the remote transcription backend"))
		}
	case "local":
		if c.Transcription.ScriptPath == "" {
			errs = append(errs, errors.New("TRANSCRIPTION_SCRIPT is required for the local transcription backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("TRANSCRIPTION_BACKEND must be remote or local; got %q", c.Transcription.Backend))
	}

	switch c.Summary.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai summary provider"))
		}
	case "gemini":
		if len(c.Summary.GeminiAPIKeys) == 0 {
			errs = append(errs, errors.New("GEMINI_API_KEYS is required for the gemini summary provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("SUMMARY_PROVIDER must be openai or gemini; got %q", c.Summary.Provider))
	}

	if c.App.DataDir == "" {
		errs = append(errs, errors.New("VIDBRIEF_DATA_DIR must not be empty"))
	}
	if c.App.RecentLimit <= 0 {
		errs = append(errs, fmt.Errorf("VIDBRIEF_RECENT_LIMIT must be positive; got %d", c.App.RecentLimit))
	}
	if c.Transcription.Timeout < 0 || c.Summary.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPM and RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}

	return errors.Join(errs...)
}

// Package config loads the server configuration from flags, the environment
// (optionally seeded from a .env file) and built-in defaults, in that order of
// precedence.
package config

import (
	"time"
)

// Config is the complete server configuration.
type Config struct {
	// SecretKey signs session tokens. When empty a secret is generated once
	// and persisted in the database.
	SecretKey string `env:"SECRET_KEY"`

	// DatabaseURL is a SQLite path (optionally prefixed with sqlite://) or a
	// postgres:// connection string.
	DatabaseURL string `env:"DATABASE_URL"`

	// Address is the HTTP listen address.
	Address string `env:"ADDRESS"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`

	Uploads Uploads
	Session Session
	MinIO   MinIO `envPrefix:"MINIO_"`
}

// Uploads configures the asset store.
type Uploads struct {
	// Backend selects where assets live: "local" or "minio".
	Backend string `env:"ASSET_BACKEND"`

	// Folder is the root directory of the local backend.
	Folder string `env:"UPLOAD_FOLDER"`

	// MaxContentLength caps a request payload in bytes.
	MaxContentLength int64 `env:"MAX_CONTENT_LENGTH"`

	// AllowedExtensions lists accepted image extensions without the dot.
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envSeparator:","`

	// MaxImageDimension is the largest width or height kept for JPEG/PNG
	// uploads. Zero selects the default; a negative value disables
	// downscaling.
	MaxImageDimension int `env:"IMAGE_MAX_DIMENSION"`
}

// Session configures session token lifetimes.
type Session struct {
	Duration         time.Duration `env:"SESSION_DURATION"`
	RememberDuration time.Duration `env:"REMEMBER_DURATION"`
}

// MinIO configures the S3-compatible asset backend.
type MinIO struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET"`
	UseSSL    bool   `env:"USE_SSL"`
}

// Asset backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DatabaseURL:     "lostfound.sqlite3",
		Address:         ":8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		Uploads: Uploads{
			Backend:           BackendLocal,
			Folder:            "uploads",
			MaxContentLength:  16 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
			MaxImageDimension: 1600,
		},
		Session: Session{
			Duration:         24 * time.Hour,
			RememberDuration: 30 * 24 * time.Hour,
		},
		MinIO: MinIO{
			Bucket: "lostfound",
		},
	}
}

// Load builds the configuration for the given command-line arguments.
func Load(args []string) (*Config, error) {
	return newConfigBuilder().
		withFlags(args).
		withDotEnv(".env").
		withEnv().
		withDefaults().
		build()
}

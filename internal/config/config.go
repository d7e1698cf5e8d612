// Package config centralizes how booktracker reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultDatabaseURI is used when MONGODB_URI is not present at all. It
// carries no credential so a forgotten variable never talks to a real
// cluster with a shared password.
const DefaultDatabaseURI = "mongodb://localhost:27017/booktracker"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

var (
	ErrMissingDatabaseURI = errors.New("database connection string is missing; set MONGODB_URI")
	ErrInvalidPort        = errors.New("invalid listen port")
)

// Config represents runtime configuration for the service.
type Config struct {
	DatabaseURI            string        `env:"MONGODB_URI"`
	Host                   string        `env:"HOST"`
	Port                   int           `env:"PORT" envDefault:"3001"`
	Environment            string        `env:"APP_ENV"`
	ServerSelectionTimeout time.Duration `env:"DB_SERVER_SELECTION_TIMEOUT" envDefault:"5s"`
	SocketTimeout          time.Duration `env:"DB_SOCKET_TIMEOUT" envDefault:"45s"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	PublicDir   string   `env:"PUBLIC_DIR" envDefault:"public"`
	UploadsDir  string   `env:"UPLOADS_DIR" envDefault:"uploads"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3001"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	AdminSetupToken string `env:"ADMIN_SETUP_TOKEN"`
	AdminUsername   string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail      string `env:"ADMIN_EMAIL" envDefault:"admin@booktracker.local"`
	AdminPassword   string `env:"ADMIN_PASSWORD"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"covers"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3UseSSL    bool   `env:"S3_USE_SSL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// DefaultURIUsed reports that MONGODB_URI was absent and the built-in
	// development URI was substituted.
	DefaultURIUsed bool `env:"-"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()
	return LoadFrom(environ())
}

// LoadFrom resolves configuration from the given variables, falling back to
// defaults for anything absent.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, ok := vars["MONGODB_URI"]; !ok {
		cfg.DatabaseURI = DefaultDatabaseURI
		cfg.DefaultURIUsed = true
	}
	cfg.DatabaseURI = strings.TrimSpace(cfg.DatabaseURI)
	if cfg.Environment == "" {
		cfg.Environment = vars["NODE_ENV"]
	}
	if cfg.Environment == "" {
		cfg.Environment = EnvProduction
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
	}
	return cfg, nil
}

// Validate reports configuration that must stop the process before it
// accepts traffic.
func (c *Config) Validate() error {
	if c.DatabaseURI == "" {
		return ErrMissingDatabaseURI
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return nil
}

// Development reports whether verbose error bodies are enabled.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// Addr is the listen address handed to net.Listen.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// S3Enabled reports whether cover uploads go to object storage instead of
// the local uploads directory.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != ""
}

func environ() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			vars[k] = v
		}
	}
	return vars
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte("fallbacksecret"))
	}
	return hex.EncodeToString(buf)
}

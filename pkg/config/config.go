// Package config provides the server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrNilConfig is returned when a nil config is passed where one is
// required.
var ErrNilConfig = errors.New("nil config")

// HTTPConfig is the HTTP configuration for the server.
type HTTPConfig struct {
	// ListenAddr is the address on which the HTTP server will listen.
	ListenAddr string `env:"LISTEN_ADDR" yaml:"listen_addr"`

	// TLSKeyPath is the path to the TLS private key.
	TLSKeyPath string `env:"TLS_KEY_PATH" yaml:"tls_key_path"`

	// TLSCertPath is the path to the TLS certificate.
	TLSCertPath string `env:"TLS_CERT_PATH" yaml:"tls_cert_path"`

	// PublicURL is the public URL of the HTTP server. Link fields in JSON
	// responses are built against it.
	PublicURL string `env:"PUBLIC_URL" yaml:"public_url"`
}

// StatsConfig is the configuration for the stats server.
type StatsConfig struct {
	// ListenAddr is the address on which the stats server will listen.
	ListenAddr string `env:"LISTEN_ADDR" yaml:"listen_addr"`
}

// LogConfig is the logger configuration.
type LogConfig struct {
	// Format is the format of the logs.
	// Valid values are "json", "logfmt", and "text".
	Format string `env:"FORMAT" yaml:"format"`

	// Time format for the log `ts` field.
	// Format must be described in Golang's time format.
	TimeFormat string `env:"TIME_FORMAT" yaml:"time_format"`

	// Path to a file to write logs to.
	// If not set, logs will be written to stderr.
	Path string `env:"PATH" yaml:"path"`
}

// CORSConfig is the cross-origin configuration for the HTTP server.
type CORSConfig struct {
	// Enabled is whether or not CORS headers are sent.
	Enabled bool `env:"ENABLED" yaml:"enabled"`

	// AllowedOrigins is the list of origins allowed to read responses.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," yaml:"allowed_origins"`

	// AllowedHeaders is the list of request headers clients may send.
	AllowedHeaders []string `env:"ALLOWED_HEADERS" envSeparator:"," yaml:"allowed_headers"`

	// AllowCredentials is whether or not credentialed requests are allowed.
	AllowCredentials bool `env:"ALLOW_CREDENTIALS" yaml:"allow_credentials"`

	// MaxAge is the number of seconds user agents may cache preflight
	// results.
	MaxAge int `env:"MAX_AGE" yaml:"max_age"`
}

// Config is the configuration for restfulgit.
type Config struct {
	// Name is the name of the server.
	Name string `env:"NAME" yaml:"name"`

	// RepoPath is the path to the directory containing the served
	// repositories.
	RepoPath string `env:"REPO_PATH" yaml:"repo_path"`

	// HTTP is the configuration for the HTTP server.
	HTTP HTTPConfig `envPrefix:"HTTP_" yaml:"http"`

	// Stats is the configuration for the stats server.
	Stats StatsConfig `envPrefix:"STATS_" yaml:"stats"`

	// Log is the logger configuration.
	Log LogConfig `envPrefix:"LOG_" yaml:"log"`

	// CORS is the cross-origin configuration.
	CORS CORSConfig `envPrefix:"CORS_" yaml:"cors"`

	// DefaultCommitLimit is the page size of commit listings when the
	// request does not carry a limit.
	DefaultCommitLimit int `env:"DEFAULT_COMMIT_LIMIT" yaml:"default_commit_limit"`

	// DataPath is the path to the directory where restfulgit keeps its
	// config file.
	DataPath string `env:"DATA_PATH" yaml:"-"`
}

// IsDebug returns true if the server is running in debug mode.
func IsDebug() bool {
	debug, _ := strconv.ParseBool(os.Getenv("RESTFULGIT_DEBUG"))
	return debug
}

// IsVerbose returns true if the server is running in verbose mode.
// Verbose mode is only enabled if debug mode is enabled.
func IsVerbose() bool {
	verbose, _ := strconv.ParseBool(os.Getenv("RESTFULGIT_VERBOSE"))
	return IsDebug() && verbose
}

// parseFile parses the given file as a configuration file.
// The file must be in YAML format.
func parseFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close() // nolint: errcheck
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return cfg.Validate()
}

// ParseFile parses the config from the default file path.
// This also calls Validate() on the config.
func (c *Config) ParseFile() error {
	return parseFile(c, c.ConfigPath())
}

// parseEnv parses the environment variables as a configuration file.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix: "RESTFULGIT_",
	}); err != nil {
		return fmt.Errorf("parse environment variables: %w", err)
	}

	return cfg.Validate()
}

// ParseEnv parses the config from the environment variables.
// This also calls Validate() on the config.
func (c *Config) ParseEnv() error {
	return parseEnv(c)
}

// Parse parses the config from the default file path and environment
// variables. This also calls Validate() on the config.
func (c *Config) Parse() error {
	if err := c.ParseFile(); err != nil {
		return err
	}

	return c.ParseEnv()
}

// DefaultDataPath returns the path to the data directory.
// It uses the RESTFULGIT_DATA_PATH environment variable if set, otherwise it
// uses "data".
func DefaultDataPath() string {
	dp := os.Getenv("RESTFULGIT_DATA_PATH")
	if dp == "" {
		dp = "data"
	}

	return dp
}

// ConfigPath returns the path to the config file.
func (c *Config) ConfigPath() string { // nolint:revive
	return filepath.Join(c.DataPath, "config.yaml")
}

func exist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Exist returns true if the config file exists.
func (c *Config) Exist() bool {
	return exist(c.ConfigPath())
}

// DefaultConfig returns the default Config. Relative path values are
// resolved against the working directory by Validate().
func DefaultConfig() *Config {
	return &Config{
		Name:     "RestfulGit",
		DataPath: DefaultDataPath(),
		RepoPath: "repos",
		HTTP: HTTPConfig{
			ListenAddr: ":8080",
			PublicURL:  "http://localhost:8080",
		},
		Stats: StatsConfig{
			ListenAddr: "localhost:8081",
		},
		Log: LogConfig{
			Format:     "text",
			TimeFormat: time.DateTime,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type"},
			MaxAge:         86400,
		},
		DefaultCommitLimit: 50,
	}
}

// Validate normalizes and checks the config.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}

	if c.RepoPath == "" {
		return fmt.Errorf("repo_path is required")
	}
	abs, err := filepath.Abs(c.RepoPath)
	if err != nil {
		return fmt.Errorf("resolve repo_path: %w", err)
	}
	c.RepoPath = abs

	if c.DefaultCommitLimit <= 0 {
		c.DefaultCommitLimit = DefaultConfig().DefaultCommitLimit
	}

	return nil
}

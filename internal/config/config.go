// Package config provides configuration management for the flickrapi tools
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexbotov/flickrapi/pkg/flickr"
)

// Config holds all configuration for the flickrapi tools
type Config struct {
	Flickr   FlickrConfig
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Auth     AuthConfig
	Log      LogConfig
}

// FlickrConfig holds API credentials and endpoints
type FlickrConfig struct {
	APIKey      string
	APISecret   string
	RESTURL     string
	AuthURL     string
	UploadURL   string
	ReplaceURL  string
	Compression bool
	Timeout     time.Duration
}

// ServerConfig holds auth callback server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database configuration. An empty DSN selects the
// file based token store in TokenDir.
type DatabaseConfig struct {
	Driver   string
	DSN      string
	TokenDir string
}

// CacheConfig holds response cache configuration. An empty RedisAddr
// selects the in-memory cache.
type CacheConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
	MaxEntries    int
}

// AuthConfig holds web authorization configuration
type AuthConfig struct {
	StateSecret string
	StateExpiry time.Duration
	Perms       flickr.Perms
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment with defaults
func Load() *Config {
	return &Config{
		Flickr: FlickrConfig{
			APIKey:      os.Getenv("FLICKR_API_KEY"),
			APISecret:   os.Getenv("FLICKR_API_SECRET"),
			RESTURL:     getEnv("FLICKR_REST_URL", flickr.DefaultRESTURL),
			AuthURL:     getEnv("FLICKR_AUTH_URL", flickr.DefaultAuthURL),
			UploadURL:   getEnv("FLICKR_UPLOAD_URL", flickr.DefaultUploadURL),
			ReplaceURL:  getEnv("FLICKR_REPLACE_URL", flickr.DefaultReplaceURL),
			Compression: getEnvBool("FLICKR_COMPRESSION", false),
			Timeout:     getEnvDuration("FLICKR_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Port:         getEnv("FLICKR_PORT", "8080"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   getEnv("FLICKR_DB_DRIVER", "postgres"),
			DSN:      os.Getenv("FLICKR_DB_DSN"),
			TokenDir: getEnv("FLICKR_TOKEN_DIR", defaultTokenDir()),
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("FLICKR_CACHE", false),
			RedisAddr:     os.Getenv("FLICKR_REDIS_ADDR"),
			RedisPassword: os.Getenv("FLICKR_REDIS_PASSWORD"),
			TTL:           getEnvDuration("FLICKR_CACHE_TTL", 5*time.Minute),
			MaxEntries:    getEnvInt("FLICKR_CACHE_MAX_ENTRIES", 200),
		},
		Auth: AuthConfig{
			StateSecret: getEnv("FLICKR_STATE_SECRET", os.Getenv("FLICKR_API_SECRET")),
			StateExpiry: 10 * time.Minute,
			Perms:       flickr.Perms(getEnv("FLICKR_PERMS", string(flickr.PermsRead))),
		},
		Log: LogConfig{
			Level:  getEnv("FLICKR_LOG_LEVEL", "info"),
			Format: getEnv("FLICKR_LOG_FORMAT", "text"),
		},
	}
}

// Validate reports missing required settings
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Flickr.APIKey) == "" {
		return errors.New("FLICKR_API_KEY is required")
	}
	return nil
}

// ClientConfig converts the Flickr settings into a client configuration
func (c *Config) ClientConfig() *flickr.ClientConfig {
	return &flickr.ClientConfig{
		APIKey:      c.Flickr.APIKey,
		APISecret:   c.Flickr.APISecret,
		RESTURL:     c.Flickr.RESTURL,
		AuthURL:     c.Flickr.AuthURL,
		UploadURL:   c.Flickr.UploadURL,
		ReplaceURL:  c.Flickr.ReplaceURL,
		Compression: c.Flickr.Compression,
		Timeout:     c.Flickr.Timeout,
	}
}

func defaultTokenDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flickr"
	}
	return home + string(os.PathSeparator) + ".flickr"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

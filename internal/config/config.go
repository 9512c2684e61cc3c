// Package config loads blobtree configuration from defaults, an optional
// YAML file, BLOBTREE_* environment variables and runtime overrides, in
// increasing order of precedence.
package config

import (
	"time"

	"github.com/3leaps/blobtree/pkg/match"
)

// Config is the process configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Health  HealthConfig  `mapstructure:"health"`
	Browse  BrowseConfig  `mapstructure:"browse"`
	S3      S3Config      `mapstructure:"s3"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	File    FileConfig    `mapstructure:"file"`

	// Filter holds default attribute filters applied to every listing.
	Filter match.FilterConfig `mapstructure:"filter"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// ReadyURI is pinged by the readiness probe when set.
	ReadyURI string `mapstructure:"ready_uri"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`

	// Profile is STRUCTURED (JSON) or CONSOLE.
	Profile string `mapstructure:"profile"`
}

type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BrowseConfig tunes the directory browser.
type BrowseConfig struct {
	Parallelism int           `mapstructure:"parallelism"`
	PageSize    int           `mapstructure:"page_size"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
	MaxResults  int           `mapstructure:"max_results"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	DelimiterWalk   bool   `mapstructure:"delimiter_walk"`
}

type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	Region        string `mapstructure:"region"`
	DelimiterWalk bool   `mapstructure:"delimiter_walk"`
}

type FileConfig struct {
	// Root is the directory file:// URIs resolve against.
	Root string `mapstructure:"root"`
}

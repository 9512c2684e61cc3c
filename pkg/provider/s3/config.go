// Package s3 lists AWS S3 and S3-compatible buckets for the directory
// browser.
package s3

import (
	"net/url"
)

// Page size limits for ListObjectsV2.
const (
	DefaultMaxKeys = 1000
	MaxAllowedKeys = 1000
)

// DefaultAWSRegion applies to AWS S3 when neither the config, the
// environment nor the profile names a region.
const DefaultAWSRegion = "us-east-1"

// Config selects the bucket a source lists and how the client reaches it.
//
// Credentials come from the SDK default chain (environment, shared files,
// instance or task role) unless AccessKeyID and SecretAccessKey are both
// set. A non-empty Endpoint targets an S3-compatible store such as MinIO
// or Wasabi; those usually also need ForcePathStyle and get no default
// region.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // full URL, e.g. http://localhost:9000
	Profile  string

	AccessKeyID     string
	SecretAccessKey string

	ForcePathStyle bool

	// MaxKeys is the page size used when a request does not set one.
	// Zero means DefaultMaxKeys; larger values are clamped to
	// MaxAllowedKeys.
	MaxKeys int

	// DelimiterWalk makes recursive listings descend one folder at a time
	// with "/" as delimiter instead of one flat listing of the subtree.
	DelimiterWalk bool
}

func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Field: "Endpoint", Message: "endpoint must be an http(s) URL"}
		}
	}
	if c.MaxKeys < 0 {
		return &ConfigError{Field: "MaxKeys", Message: "must not be negative"}
	}
	return nil
}

// ConfigError names the Config field that failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}

// Package minio lists MinIO buckets for the directory browser using the
// MinIO SDK.
package minio

// DefaultMaxKeys is the default page size for ListObjectsV2.
const DefaultMaxKeys = 1000

// Config configures a MinIO provider.
type Config struct {
	// Endpoint is host[:port] without a scheme, e.g. "localhost:9000".
	Endpoint string

	// Bucket is the bucket to list (required).
	Bucket string

	AccessKey string
	SecretKey string

	// UseSSL selects https.
	UseSSL bool

	Region string

	// MaxKeys is the default page size. Zero uses DefaultMaxKeys.
	MaxKeys int

	// DelimiterWalk lists recursive requests one level at a time.
	DelimiterWalk bool
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required"}
	}
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKey != "") != (c.SecretKey != "") {
		return &ConfigError{Field: "AccessKey/SecretKey", Message: "access key and secret key must be provided together"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}

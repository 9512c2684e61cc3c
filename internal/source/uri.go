// Package source turns blob URIs into browsers over the configured
// backends.
package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/3leaps/blobtree/pkg/blobpath"
	"github.com/3leaps/blobtree/pkg/match"
	"github.com/3leaps/blobtree/pkg/provider"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedProvider indicates the URI scheme is not supported.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingBucket indicates the URI is missing a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

// BlobURI is a parsed storage URI.
//
// Example URIs:
//   - s3://bucket/logs/2024/
//   - minio://bucket/data/**/*.parquet
//   - file:///var/log
type BlobURI struct {
	// Provider is the storage backend.
	Provider provider.ProviderType

	// Bucket is the bucket name. Empty for file URIs.
	Bucket string

	// Key is the object key or folder, relative to the bucket root.
	// When Pattern is set it is the static prefix of the pattern.
	Key string

	// Pattern is set if the path contains glob characters.
	Pattern string
}

// String returns the URI in canonical form.
func (u *BlobURI) String() string {
	rest := u.Key
	if u.Pattern != "" {
		rest = u.Pattern
	}
	if u.Provider == provider.ProviderFile {
		return "file:///" + rest
	}
	return fmt.Sprintf("%s://%s/%s", u.Provider, u.Bucket, rest)
}

// IsPattern returns true if the URI contains glob pattern characters.
func (u *BlobURI) IsPattern() bool {
	return u.Pattern != ""
}

// Path returns the blob path the URI addresses.
func (u *BlobURI) Path() string {
	return blobpath.FromKey(u.Key)
}

// Folder returns the folder to list: the path itself, or for a pattern the
// deepest folder of its static prefix.
func (u *BlobURI) Folder() string {
	if u.Pattern == "" {
		return u.Path()
	}
	if strings.HasSuffix(u.Key, "/") {
		return blobpath.FromKey(u.Key)
	}
	return blobpath.GetParent(blobpath.FromKey(u.Key))
}

// ParseURI parses a storage URI into its components.
//
// Supported formats:
//   - s3://bucket[/key]
//   - minio://bucket[/key]
//   - file:///absolute/path
func ParseURI(uri string) (*BlobURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	// Parsed by hand: url.Parse treats '?' in globs as a query delimiter.
	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return nil, fmt.Errorf("%w: missing scheme (expected s3://, minio:// or file://)", ErrInvalidURI)
	}

	scheme := strings.ToLower(uri[:schemeEnd])
	remainder := uri[schemeEnd+3:]

	result := &BlobURI{}
	var key string
	switch provider.ProviderType(scheme) {
	case provider.ProviderS3, provider.ProviderMinIO:
		result.Provider = provider.ProviderType(scheme)
		bucket := remainder
		if i := strings.Index(remainder, "/"); i >= 0 {
			bucket, key = remainder[:i], remainder[i+1:]
		}
		if bucket == "" {
			return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
		}
		if _, err := url.Parse(scheme + "://" + bucket + "/"); err != nil {
			return nil, fmt.Errorf("%w: invalid bucket name %q", ErrInvalidURI, bucket)
		}
		result.Bucket = bucket
	case provider.ProviderFile:
		result.Provider = provider.ProviderFile
		if !strings.HasPrefix(remainder, "/") {
			return nil, fmt.Errorf("%w: file URIs need an absolute path (file:///path)", ErrInvalidURI)
		}
		key = strings.TrimPrefix(remainder, "/")
	default:
		return nil, fmt.Errorf("%w: %s (supported: s3, minio, file)", ErrUnsupportedProvider, scheme)
	}

	if blobpath.HasDotDot(key) {
		return nil, fmt.Errorf("%w: '..' segments are not allowed", ErrInvalidURI)
	}

	if match.IsGlobPattern(key) {
		result.Pattern = key
	}
	// Unescapes literal metacharacters, e.g. "file\*.txt" -> "file*.txt".
	result.Key = match.DerivePrefix(key)
	return result, nil
}

// Package provider defines the contracts the directory browser consumes from
// storage backends.
//
// Backends implement a minimal surface: fetch one page of native listing
// records for a directory, convert a native record into a blob.Blob, and
// (optionally) fetch per-object metadata. Authentication, retries and wire
// details stay inside the backend package.
package provider

import (
	"context"

	"github.com/3leaps/blobtree/pkg/blob"
)

// PageRequest describes one page fetch.
type PageRequest struct {
	// Directory is the normalized folder path to list.
	Directory string

	// Prefix is the leaf-name prefix. Only set when the source reports
	// Capabilities.ServerSidePrefix.
	Prefix string

	// Cursor resumes from a previous Page.Next. Empty starts a new listing.
	Cursor string

	// Recursive asks for the whole subtree in one flat listing. Only set when
	// the source reports Capabilities.FlatRecursive.
	Recursive bool

	// PageSize is a hint for the page size. Zero uses the backend default.
	PageSize int
}

// Page is one bounded page of native records.
type Page[T any] struct {
	// Items are the native records in backend order.
	Items []T

	// Next is the opaque continuation cursor. Empty means the directory is
	// exhausted; it is the only termination signal.
	Next string
}

// PageFetcher lists one page under a directory.
//
// Implementations must:
//   - Return at most one page per call
//   - Return an empty first page with no cursor when the directory does not
//     exist, instead of an error
//   - Be safe for concurrent use
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, req PageRequest) (*Page[T], error)
}

// Source is a backend usable by the directory browser.
type Source[T any] interface {
	PageFetcher[T]

	// Convert maps a native record into a Blob. It must not fail when native
	// fields are absent. Returning false skips the record (for example the
	// marker object of the listed directory itself).
	Convert(rec T) (*blob.Blob, bool)

	// Capabilities reports optional listing behaviors.
	Capabilities() Capabilities
}

// MetadataFetcher fetches the full metadata record of one object.
//
// A nil record with a nil error means the object has no record; the
// enrichment pass skips it.
type MetadataFetcher interface {
	FetchOne(ctx context.Context, fullPath string) (*blob.Attributes, error)
}

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderMinIO represents a MinIO server accessed with the MinIO SDK.
	ProviderMinIO ProviderType = "minio"

	// ProviderFile represents a local filesystem tree.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

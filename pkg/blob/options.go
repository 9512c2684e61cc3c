package blob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/3leaps/blobtree/pkg/blobpath"
)

// MaxFilePrefixLength bounds ListOptions.FilePrefix. It matches the S3 key
// length limit; no backend can hold a longer name.
const MaxFilePrefixLength = 1024

// DefaultParallelism is used when ListOptions.MaxDegreeOfParallelism is zero.
const DefaultParallelism = 4

// ErrInvalidArgument is matched by every ValidationError.
var ErrInvalidArgument = errors.New("invalid argument")

// ValidationError reports a rejected argument. It is raised before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrInvalidArgument) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Filter is a caller-supplied predicate over a converted Blob. Returning
// false excludes the Blob from results, and a rejected folder is not
// descended into.
type Filter func(*Blob) bool

// ListOptions configures one listing.
type ListOptions struct {
	// FolderPath is the directory to list. Empty means root.
	FolderPath string

	// FilePrefix keeps only files whose name starts with this string.
	// Folders are never hidden by it.
	FilePrefix string

	// Recurse descends into every discovered sub-folder.
	Recurse bool

	// MaxResults caps the number of returned entries. Zero means unlimited.
	// Truncation happens once, after merging.
	MaxResults int

	// IncludeAttributes runs the metadata enrichment pass.
	IncludeAttributes bool

	// BrowseFilter is applied after conversion and before recursion.
	BrowseFilter Filter

	// MaxDegreeOfParallelism sizes the concurrency limiter for this call.
	// Zero uses DefaultParallelism.
	MaxDegreeOfParallelism int
}

// Validate rejects malformed options.
func (o *ListOptions) Validate() error {
	if len(o.FilePrefix) > MaxFilePrefixLength {
		return &ValidationError{
			Field:   "FilePrefix",
			Message: fmt.Sprintf("length %d exceeds maximum %d", len(o.FilePrefix), MaxFilePrefixLength),
		}
	}
	if strings.Contains(o.FilePrefix, blobpath.Separator) {
		return &ValidationError{Field: "FilePrefix", Message: "must not contain a path separator"}
	}
	if blobpath.HasDotDot(o.FolderPath) {
		return &ValidationError{Field: "FolderPath", Message: "must not contain '..' segments"}
	}
	if o.MaxResults < 0 {
		return &ValidationError{Field: "MaxResults", Message: "must be >= 0"}
	}
	if o.MaxDegreeOfParallelism < 0 {
		return &ValidationError{Field: "MaxDegreeOfParallelism", Message: "must be >= 0"}
	}
	return nil
}

// Parallelism returns the effective limiter size.
func (o *ListOptions) Parallelism() int {
	if o.MaxDegreeOfParallelism == 0 {
		return DefaultParallelism
	}
	return o.MaxDegreeOfParallelism
}

// Folder returns the normalized folder path.
func (o *ListOptions) Folder() string {
	return blobpath.Normalize(o.FolderPath)
}

// IsFull reports whether count entries already satisfy MaxResults.
func (o *ListOptions) IsFull(count int) bool {
	return o.MaxResults > 0 && count >= o.MaxResults
}

// Package output renders listing results.
//
// The JSONL form wraps every record in a typed envelope; each line is a
// self-contained JSON object that can be parsed independently. Table and
// YAML renderings are meant for people.
package output

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/blobtree/pkg/blob"
)

// Record type constants follow the pattern blobtree.<type>.v<version>.
const (
	// TypeBlob identifies file and folder entries.
	TypeBlob = "blobtree.blob.v1"

	// TypeError identifies error records.
	TypeError = "blobtree.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "blobtree.summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "blobtree.blob.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID correlates all records of one listing.
	JobID string `json:"job_id"`

	// Provider identifies the storage backend (e.g., "s3", "file").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// BlobRecord is the payload for one listed entry.
type BlobRecord struct {
	Path         string            `json:"path" yaml:"path"`
	Kind         blob.Kind         `json:"kind" yaml:"kind"`
	Size         *int64            `json:"size,omitempty" yaml:"size,omitempty"`
	LastModified *time.Time        `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	MD5          string            `json:"md5,omitempty" yaml:"md5,omitempty"`
	Properties   *blob.Properties  `json:"properties,omitempty" yaml:"-"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Props mirrors Properties for YAML, which cannot keep insertion order.
	Props map[string]any `json:"-" yaml:"properties,omitempty"`
}

// NewBlobRecord converts a listing entry into its output payload.
func NewBlobRecord(b *blob.Blob) *BlobRecord {
	rec := &BlobRecord{
		Path:         b.FullPath,
		Kind:         b.Kind,
		Size:         b.Size,
		LastModified: b.LastModified,
		MD5:          b.MD5,
		Metadata:     b.Metadata,
	}
	if b.Properties.Len() > 0 {
		props := b.Properties
		rec.Properties = &props
		rec.Props = make(map[string]any, props.Len())
		for _, k := range props.Keys() {
			v, _ := props.Get(k)
			rec.Props[k] = v
		}
	}
	return rec
}

// ErrorRecord is the payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Path is the blob path related to this error, if applicable.
	Path string `json:"path,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeCanceled        = "CANCELED"
	ErrCodeThrottled       = "THROTTLED"
	ErrCodeUnavailable     = "UNAVAILABLE"
	ErrCodeInternal        = "INTERNAL"
)

// SummaryRecord is the payload of the final record of a listing.
type SummaryRecord struct {
	Folder string `json:"folder"`

	Files   int64 `json:"files"`
	Folders int64 `json:"folders"`

	// BytesTotal sums the sizes of files that carry one.
	BytesTotal int64 `json:"bytes_total"`

	// Truncated is set when the result reached MaxResults.
	Truncated bool `json:"truncated"`

	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
}

// Summarize counts entries for a SummaryRecord.
func Summarize(folder string, entries []*blob.Blob, maxResults int, elapsed time.Duration) *SummaryRecord {
	sum := &SummaryRecord{
		Folder:        folder,
		Truncated:     maxResults > 0 && len(entries) >= maxResults,
		Duration:      elapsed,
		DurationHuman: elapsed.String(),
	}
	for _, e := range entries {
		if e.IsFolder() {
			sum.Folders++
			continue
		}
		sum.Files++
		if e.Size != nil {
			sum.BytesTotal += *e.Size
		}
	}
	return sum
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Package blob defines the common result model shared by every backend:
// Blob entries, their attributes, and the options that drive a listing.
package blob

import (
	"fmt"
	"time"

	"github.com/3leaps/blobtree/pkg/blobpath"
)

// Kind classifies a listed entry.
type Kind int

const (
	// KindFile is a stored object or regular file.
	KindFile Kind = iota

	// KindFolder is a native directory, a common prefix, or a synthesized
	// implicit folder.
	KindFolder
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "file":
		*k = KindFile
	case "folder":
		*k = KindFolder
	default:
		return fmt.Errorf("unknown blob kind %q", string(text))
	}
	return nil
}

// Key is the identity of a Blob within one listing.
type Key struct {
	Path string
	Kind Kind
}

// Blob is one listed item: a file or a folder.
//
// A Blob is built fresh for every listing. Once it is part of a result only
// the metadata enrichment pass may change it (see Apply).
type Blob struct {
	// FullPath is the normalized absolute path.
	FullPath string

	// Kind is file or folder.
	Kind Kind

	// Size in bytes, when the backend supplied it.
	Size *int64

	// LastModified is the modification time, when known.
	LastModified *time.Time

	// MD5 is the hex-encoded content hash, when known.
	MD5 string

	// Properties holds backend-specific attributes in insertion order.
	// They are informational only.
	Properties Properties

	// Metadata holds user-defined key/value tags with wire prefixes removed.
	Metadata map[string]string
}

// NewFile returns a file entry at path.
func NewFile(path string) *Blob {
	return &Blob{FullPath: blobpath.Normalize(path), Kind: KindFile}
}

// NewFolder returns a folder entry at path.
func NewFolder(path string) *Blob {
	return &Blob{FullPath: blobpath.Normalize(path), Kind: KindFolder}
}

// Key returns the identity of b.
func (b *Blob) Key() Key {
	return Key{Path: b.FullPath, Kind: b.Kind}
}

// Equal reports whether b and other share path and kind.
func (b *Blob) Equal(other *Blob) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Key() == other.Key()
}

// IsFile reports whether b is a file.
func (b *Blob) IsFile() bool { return b.Kind == KindFile }

// IsFolder reports whether b is a folder.
func (b *Blob) IsFolder() bool { return b.Kind == KindFolder }

// Name returns the last path segment.
func (b *Blob) Name() string {
	return blobpath.Name(b.FullPath)
}

// FolderPath returns the path of the containing folder.
func (b *Blob) FolderPath() string {
	return blobpath.GetParent(b.FullPath)
}

// SetSize records the size.
func (b *Blob) SetSize(n int64) {
	b.Size = &n
}

// SetLastModified records the modification time. Zero times are ignored.
func (b *Blob) SetLastModified(t time.Time) {
	if t.IsZero() {
		return
	}
	b.LastModified = &t
}

// Apply attaches fetched attributes. Fields absent from attrs are left as-is.
//
// Apply is reserved for the metadata enrichment pass.
func (b *Blob) Apply(attrs *Attributes) {
	if attrs == nil {
		return
	}
	if attrs.Size != nil {
		b.SetSize(*attrs.Size)
	}
	if attrs.LastModified != nil {
		b.SetLastModified(*attrs.LastModified)
	}
	if attrs.MD5 != "" {
		b.MD5 = attrs.MD5
	}
	for _, k := range attrs.Properties.Keys() {
		v, _ := attrs.Properties.Get(k)
		b.Properties.Set(k, v)
	}
	if len(attrs.Metadata) > 0 {
		if b.Metadata == nil {
			b.Metadata = make(map[string]string, len(attrs.Metadata))
		}
		for k, v := range attrs.Metadata {
			b.Metadata[k] = v
		}
	}
}

// String returns "kind path".
func (b *Blob) String() string {
	return b.Kind.String() + " " + b.FullPath
}

// Attributes is a backend metadata record for one object, as returned by a
// metadata fetch.
type Attributes struct {
	Size         *int64
	LastModified *time.Time
	MD5          string
	Properties   Properties
	Metadata     map[string]string
}

// Package blobpath models hierarchical paths over a flat "/"-separated
// namespace.
//
// Every full path handled by blobtree is normalized: it starts with exactly
// one separator, has no empty segments, and has no trailing separator unless
// it is the root ("/"). Backends with a flat key space convert at the edge
// with ToKey and FromKey.
package blobpath

import (
	"strconv"
	"strings"
)

// Separator is the path separator for every backend.
const Separator = "/"

// Root is the normalized root path.
const Root = Separator

// Normalize returns the canonical form of p.
//
// Empty input and inputs made only of separators normalize to Root.
// Repeated separators collapse and a trailing separator is dropped.
// Normalize is idempotent.
//
// Examples:
//
//	""          → "/"
//	"a/b"       → "/a/b"
//	"//a//b/"   → "/a/b"
//	"/"         → "/"
func Normalize(p string) string {
	segments := Split(p)
	if len(segments) == 0 {
		return Root
	}
	return Separator + strings.Join(segments, Separator)
}

// Split returns the non-empty segments of p in order.
// The root path yields no segments.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	raw := strings.Split(p, Separator)
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// Combine joins parts into one normalized path.
//
// Empty parts are skipped without introducing a double separator, so
// Combine("/a", "", "b") == "/a/b". Combine with no parts returns Root.
func Combine(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		segments = append(segments, Split(part)...)
	}
	if len(segments) == 0 {
		return Root
	}
	return Separator + strings.Join(segments, Separator)
}

// CombineStrict joins parts like Combine, but a nil part is a contract
// violation and panics. Use it where every segment is required.
func CombineStrict(parts ...*string) string {
	values := make([]string, len(parts))
	for i, part := range parts {
		if part == nil {
			panic("blobpath: nil path segment at index " + strconv.Itoa(i))
		}
		values[i] = *part
	}
	return Combine(values...)
}

// IsRoot reports whether p normalizes to Root.
func IsRoot(p string) bool {
	return Normalize(p) == Root
}

// GetParent returns the normalized parent of p. The parent of Root is Root.
func GetParent(p string) string {
	segments := Split(p)
	if len(segments) <= 1 {
		return Root
	}
	return Separator + strings.Join(segments[:len(segments)-1], Separator)
}

// Name returns the last segment of p, or "" for Root.
func Name(p string) string {
	segments := Split(p)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// IsUnder reports whether p is strictly below root.
func IsUnder(p, root string) bool {
	p = Normalize(p)
	root = Normalize(root)
	if p == root {
		return false
	}
	if root == Root {
		return true
	}
	return strings.HasPrefix(p, root+Separator)
}

// Relative returns p relative to root without a leading separator.
// It returns "" when p equals root and p unchanged when p is not under root.
func Relative(p, root string) string {
	p = Normalize(p)
	root = Normalize(root)
	if p == root {
		return ""
	}
	if !IsUnder(p, root) {
		return p
	}
	if root == Root {
		return p[1:]
	}
	return p[len(root)+1:]
}

// HasDotDot reports whether any segment of p is "..".
func HasDotDot(p string) bool {
	for _, seg := range Split(p) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ToKey converts a normalized path into a flat object key.
//
// Keys carry no leading separator. Folder keys (used as listing prefixes)
// carry a trailing separator; the root folder key is "".
func ToKey(p string, folder bool) string {
	n := Normalize(p)
	if n == Root {
		return ""
	}
	key := n[1:]
	if folder {
		key += Separator
	}
	return key
}

// FromKey converts a flat object key into a normalized path.
// A trailing separator (folder marker) is dropped.
func FromKey(key string) string {
	return Normalize(key)
}

// Package match selects listed blobs by glob pattern (doublestar semantics)
// and by size, modification time, or path regex.
//
// Patterns are matched against object keys: the blob path without its
// leading separator, e.g. "/logs/2024/app.log" is matched as
// "logs/2024/app.log".
package match

import (
	"strings"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
)

// Characters a backslash escapes inside a pattern.
const globEscapable = `*?[]{}\`

// KeyOf returns the key patterns are matched against for b.
func KeyOf(b *blob.Blob) string {
	return blobpath.ToKey(b.FullPath, false)
}

// NormalizePattern rewrites a user pattern into canonical form.
//
// Backslashes that do not escape a glob metacharacter become forward
// slashes, so "logs\2024\app.gz" and "logs/2024/app.gz" are equivalent while
// "report\*.csv" still matches a literal asterisk. A backslash in front of
// a segment made only of stars ("\*" or "\**" up to the next separator or
// the end), or right after one, is a separator too.
//
//	"logs\2024\**"    → "logs/2024/**"
//	"logs\*"          → "logs/*"
//	"logs/file\*.txt" → "logs/file\*.txt"
func NormalizePattern(pattern string) string {
	if !strings.Contains(pattern, `\`) {
		return pattern
	}

	var sb strings.Builder
	sb.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		escapes := i+1 < len(pattern) && strings.IndexByte(globEscapable, pattern[i+1]) >= 0
		if escapes && !starSegment(pattern[i+1:]) && !endsStarSegment(sb.String()) {
			sb.WriteByte(c)
			sb.WriteByte(pattern[i+1])
			i++
			continue
		}
		sb.WriteByte('/')
	}
	return sb.String()
}

// starSegment reports whether s opens with a run of stars that fills a
// whole path segment.
func starSegment(s string) bool {
	n := 0
	for n < len(s) && s[n] == '*' {
		n++
	}
	if n == 0 {
		return false
	}
	return n == len(s) || s[n] == '/' || s[n] == '\\'
}

// endsStarSegment reports whether the last segment of s is made only of
// stars.
func endsStarSegment(s string) bool {
	seg := s[strings.LastIndexByte(s, '/')+1:]
	return seg != "" && strings.Trim(seg, "*") == ""
}

// IsHidden reports whether any segment of key starts with a dot.
//
//	"logs/.cache/x" → true
//	"logs/x."       → false
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, blobpath.Separator) {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

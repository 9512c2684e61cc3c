package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/3leaps/blobtree/pkg/blob"
)

// ErrInvalidPattern is returned when a pattern does not compile.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError names the pattern that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Config configures a Matcher.
type Config struct {
	// Includes are patterns a file must match (at least one). Empty matches
	// every file.
	Includes []string

	// Excludes are patterns no file or folder may match.
	Excludes []string

	// IncludeHidden keeps entries with a dot-prefixed segment.
	IncludeHidden bool
}

// Matcher selects blobs by glob pattern. It is safe for concurrent use.
type Matcher struct {
	includes      []string
	excludes      []string
	prefixes      []string
	includeHidden bool
}

// New compiles cfg.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}
	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		prefixes:      DerivePrefixes(includes),
		includeHidden: cfg.IncludeHidden,
	}, nil
}

func compile(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		p := NormalizePattern(r)
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: r, Err: ErrInvalidPattern}
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether a file with the given key is selected.
func (m *Matcher) Match(key string) bool {
	if !m.includeHidden && IsHidden(key) {
		return false
	}
	if len(m.includes) > 0 && !anyMatch(m.includes, key) {
		return false
	}
	return !anyMatch(m.excludes, key)
}

// MatchBlob reports whether b is selected.
//
// Files go through Match. Folders are kept unless they are hidden, match an
// exclude, or cannot contain anything the includes select, so a listing
// never descends into them.
func (m *Matcher) MatchBlob(b *blob.Blob) bool {
	key := KeyOf(b)
	if b.IsFile() {
		return m.Match(key)
	}
	if !m.includeHidden && IsHidden(key) {
		return false
	}
	if anyMatch(m.excludes, key) {
		return false
	}
	return m.mayContain(key)
}

// Filter returns MatchBlob as a listing filter.
func (m *Matcher) Filter() blob.Filter {
	return m.MatchBlob
}

// mayContain reports whether a folder key overlaps any include prefix.
func (m *Matcher) mayContain(folderKey string) bool {
	if len(m.prefixes) == 0 {
		return true
	}
	dir := folderKey + "/"
	for _, p := range m.prefixes {
		if p == "" || strings.HasPrefix(dir, p) || strings.HasPrefix(p, dir) {
			return true
		}
	}
	return false
}

// Prefixes returns the deduplicated static prefixes of the includes.
func (m *Matcher) Prefixes() []string {
	return m.prefixes
}

// IncludePatterns returns the normalized include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the normalized exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

func anyMatch(patterns []string, key string) bool {
	for _, p := range patterns {
		// Patterns are validated in New.
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

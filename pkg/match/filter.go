package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/blobtree/pkg/blob"
)

// Filter is an attribute predicate over listed blobs.
//
// Folders always pass: they carry no size or time of their own and
// rejecting one would prune its whole subtree. Files missing the attribute a
// filter needs do not pass.
type Filter interface {
	Match(b *blob.Blob) bool
	String() string
}

// FilterConfig holds filter criteria from config files or CLI flags.
type FilterConfig struct {
	Size     *SizeFilterConfig `json:"size,omitempty" yaml:"size,omitempty" mapstructure:"size"`
	Modified *DateFilterConfig `json:"modified,omitempty" yaml:"modified,omitempty" mapstructure:"modified"`

	// PathRegex is applied to the full blob path, e.g. "/logs/app.log".
	PathRegex string `json:"path_regex,omitempty" yaml:"path_regex,omitempty" mapstructure:"path_regex"`
}

// SizeFilterConfig bounds file size. Both ends are inclusive and accept
// human-readable sizes ("1KB", "100MiB").
type SizeFilterConfig struct {
	Min string `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max string `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`
}

// DateFilterConfig bounds modification time. After is inclusive, Before is
// exclusive. Both accept "2024-01-15" or RFC 3339.
type DateFilterConfig struct {
	After  string `json:"after,omitempty" yaml:"after,omitempty" mapstructure:"after"`
	Before string `json:"before,omitempty" yaml:"before,omitempty" mapstructure:"before"`
}

var (
	ErrInvalidSize  = errors.New("invalid size value")
	ErrInvalidDate  = errors.New("invalid date value")
	ErrInvalidRegex = errors.New("invalid regex pattern")
)

// SizeFilter keeps files within a size range. A bound of -1 is open.
type SizeFilter struct {
	min int64
	max int64
}

// NewSizeFilter returns nil when cfg is nil.
func NewSizeFilter(cfg *SizeFilterConfig) (*SizeFilter, error) {
	if cfg == nil {
		return nil, nil
	}
	f := &SizeFilter{min: -1, max: -1}
	if cfg.Min != "" {
		n, err := ParseSize(cfg.Min)
		if err != nil {
			return nil, fmt.Errorf("min size: %w", err)
		}
		f.min = n
	}
	if cfg.Max != "" {
		n, err := ParseSize(cfg.Max)
		if err != nil {
			return nil, fmt.Errorf("max size: %w", err)
		}
		f.max = n
	}
	if f.min >= 0 && f.max >= 0 && f.min > f.max {
		return nil, fmt.Errorf("%w: min (%d) > max (%d)", ErrInvalidSize, f.min, f.max)
	}
	return f, nil
}

func (f *SizeFilter) Match(b *blob.Blob) bool {
	if b.IsFolder() {
		return true
	}
	if b.Size == nil {
		return false
	}
	size := *b.Size
	return (f.min < 0 || size >= f.min) && (f.max < 0 || size <= f.max)
}

func (f *SizeFilter) String() string {
	switch {
	case f.min >= 0 && f.max >= 0:
		return fmt.Sprintf("size: %s - %s", FormatSize(f.min), FormatSize(f.max))
	case f.min >= 0:
		return "size: >= " + FormatSize(f.min)
	case f.max >= 0:
		return "size: <= " + FormatSize(f.max)
	}
	return "size: any"
}

// DateFilter keeps files modified within [after, before).
type DateFilter struct {
	after  time.Time
	before time.Time
}

// NewDateFilter returns nil when cfg is nil.
func NewDateFilter(cfg *DateFilterConfig) (*DateFilter, error) {
	if cfg == nil {
		return nil, nil
	}
	f := &DateFilter{}
	if cfg.After != "" {
		t, err := ParseDate(cfg.After)
		if err != nil {
			return nil, fmt.Errorf("after date: %w", err)
		}
		f.after = t
	}
	if cfg.Before != "" {
		t, err := ParseDate(cfg.Before)
		if err != nil {
			return nil, fmt.Errorf("before date: %w", err)
		}
		f.before = t
	}
	if !f.after.IsZero() && !f.before.IsZero() && !f.after.Before(f.before) {
		return nil, fmt.Errorf("%w: after (%s) >= before (%s)", ErrInvalidDate, f.after, f.before)
	}
	return f, nil
}

func (f *DateFilter) Match(b *blob.Blob) bool {
	if b.IsFolder() {
		return true
	}
	if b.LastModified == nil {
		return false
	}
	mod := *b.LastModified
	if !f.after.IsZero() && mod.Before(f.after) {
		return false
	}
	if !f.before.IsZero() && !mod.Before(f.before) {
		return false
	}
	return true
}

func (f *DateFilter) String() string {
	const day = "2006-01-02"
	switch {
	case !f.after.IsZero() && !f.before.IsZero():
		return fmt.Sprintf("modified: %s to %s", f.after.Format(day), f.before.Format(day))
	case !f.after.IsZero():
		return "modified: on/after " + f.after.Format(day)
	case !f.before.IsZero():
		return "modified: before " + f.before.Format(day)
	}
	return "modified: any"
}

// RegexFilter keeps files whose full path matches a regular expression.
type RegexFilter struct {
	re *regexp.Regexp
}

// NewRegexFilter returns nil when pattern is empty.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	return &RegexFilter{re: re}, nil
}

func (f *RegexFilter) Match(b *blob.Blob) bool {
	return b.IsFolder() || f.re.MatchString(b.FullPath)
}

func (f *RegexFilter) String() string {
	return "path_regex: " + f.re.String()
}

// CompositeFilter passes a blob only if every member passes.
type CompositeFilter struct {
	filters []Filter
}

// NewCompositeFilter skips nil members and returns nil when none remain.
func NewCompositeFilter(filters ...Filter) *CompositeFilter {
	var kept []Filter
	for _, f := range filters {
		if f == nil || isNilFilter(f) {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil
	}
	return &CompositeFilter{filters: kept}
}

// isNilFilter catches typed nil pointers returned by the New* constructors.
func isNilFilter(f Filter) bool {
	switch v := f.(type) {
	case *SizeFilter:
		return v == nil
	case *DateFilter:
		return v == nil
	case *RegexFilter:
		return v == nil
	case *CompositeFilter:
		return v == nil
	}
	return false
}

// NewFilterFromConfig builds the filters cfg describes. It returns nil when
// cfg configures nothing.
func NewFilterFromConfig(cfg *FilterConfig) (*CompositeFilter, error) {
	if cfg == nil {
		return nil, nil
	}
	size, err := NewSizeFilter(cfg.Size)
	if err != nil {
		return nil, err
	}
	date, err := NewDateFilter(cfg.Modified)
	if err != nil {
		return nil, err
	}
	re, err := NewRegexFilter(cfg.PathRegex)
	if err != nil {
		return nil, err
	}
	return NewCompositeFilter(size, date, re), nil
}

func (f *CompositeFilter) Match(b *blob.Blob) bool {
	for _, m := range f.filters {
		if !m.Match(b) {
			return false
		}
	}
	return true
}

func (f *CompositeFilter) String() string {
	parts := make([]string, len(f.filters))
	for i, m := range f.filters {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

// Filters returns the members.
func (f *CompositeFilter) Filters() []Filter {
	return f.filters
}

// All combines listing filters; nil members are skipped. It returns nil when
// nothing remains.
func All(filters ...blob.Filter) blob.Filter {
	var kept []blob.Filter
	for _, f := range filters {
		if f != nil {
			kept = append(kept, f)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return func(b *blob.Blob) bool {
		for _, f := range kept {
			if !f(b) {
				return false
			}
		}
		return true
	}
}

// Size units. KB/MB/GB/TB are decimal, KiB/MiB/GiB/TiB binary.
const (
	Byte int64 = 1

	KB int64 = 1000
	MB       = 1000 * KB
	GB       = 1000 * MB
	TB       = 1000 * GB

	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
	TiB       = 1024 * GiB
)

var sizeUnits = map[string]int64{
	"": Byte, "B": Byte,
	"K": KB, "KB": KB, "M": MB, "MB": MB, "G": GB, "GB": GB, "T": TB, "TB": TB,
	"KI": KiB, "KIB": KiB, "MI": MiB, "MIB": MiB, "GI": GiB, "GIB": GiB, "TI": TiB, "TIB": TiB,
}

// ParseSize parses "1024", "1.5MB" or "10GiB" (units are case-insensitive).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if end < 0 {
		end = len(s)
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	mult, ok := sizeUnits[strings.ToUpper(strings.TrimSpace(s[end:]))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidSize, s)
	}

	num := s[:end]
	if !strings.Contains(num, ".") {
		n, err := strconv.ParseUint(num, 10, 64)
		if err != nil || n > uint64(math.MaxInt64/mult) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
		}
		return int64(n) * mult, nil
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	bytes := f * float64(mult)
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return int64(bytes), nil
}

// FormatSize renders bytes with binary units.
func FormatSize(n int64) string {
	units := []struct {
		size int64
		name string
	}{{TiB, "TiB"}, {GiB, "GiB"}, {MiB, "MiB"}, {KiB, "KiB"}}
	for _, u := range units {
		if n >= u.size {
			return fmt.Sprintf("%.1f%s", float64(n)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%dB", n)
}

// ParseDate parses "2024-01-15" (midnight UTC) or an RFC 3339 time, and
// returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

package source

import (
	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/match"
)

// Selection describes which entries a listing keeps beyond folder and
// prefix.
type Selection struct {
	Includes      []string
	Excludes      []string
	IncludeHidden bool
	Filter        match.FilterConfig
}

// BrowseFilter compiles the selection. It returns nil when nothing is
// selected away.
func (s Selection) BrowseFilter() (blob.Filter, error) {
	var parts []blob.Filter

	if len(s.Includes) > 0 || len(s.Excludes) > 0 || !s.IncludeHidden {
		m, err := match.New(match.Config{
			Includes:      s.Includes,
			Excludes:      s.Excludes,
			IncludeHidden: s.IncludeHidden,
		})
		if err != nil {
			return nil, err
		}
		parts = append(parts, m.Filter())
	}

	attrs, err := match.NewFilterFromConfig(&s.Filter)
	if err != nil {
		return nil, err
	}
	if attrs != nil && len(attrs.Filters()) > 0 {
		parts = append(parts, attrs.Match)
	}

	return match.All(parts...), nil
}

// WithURI adds the URI's glob pattern to the includes.
func (s Selection) WithURI(u *BlobURI) Selection {
	if u.IsPattern() {
		s.Includes = append(append([]string(nil), s.Includes...), u.Pattern)
	}
	return s
}

// Merge fills unset attribute bounds of s from defaults.
func (s Selection) Merge(defaults match.FilterConfig) Selection {
	if s.Filter.Size == nil {
		s.Filter.Size = defaults.Size
	}
	if s.Filter.Modified == nil {
		s.Filter.Modified = defaults.Modified
	}
	if s.Filter.PathRegex == "" {
		s.Filter.PathRegex = defaults.PathRegex
	}
	return s
}

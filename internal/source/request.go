package source

import (
	"strings"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/match"
)

// ListRequest is a listing described by user input, before it is bound to a
// URI.
type ListRequest struct {
	Recurse     bool
	FilePrefix  string
	MaxResults  int
	Attributes  bool
	Parallelism int
	Selection   Selection
}

// Options binds the request to u.
//
// A glob in the URI becomes an include pattern. The listing recurses when
// asked to, or when the glob reaches below the folder it starts in.
func (r ListRequest) Options(u *BlobURI) (blob.ListOptions, error) {
	filter, err := r.Selection.WithURI(u).BrowseFilter()
	if err != nil {
		return blob.ListOptions{}, err
	}
	return blob.ListOptions{
		FolderPath:             u.Folder(),
		FilePrefix:             r.FilePrefix,
		Recurse:                r.Recurse || patternDescends(u),
		MaxResults:             r.MaxResults,
		IncludeAttributes:      r.Attributes,
		BrowseFilter:           filter,
		MaxDegreeOfParallelism: r.Parallelism,
	}, nil
}

func patternDescends(u *BlobURI) bool {
	if !u.IsPattern() {
		return false
	}
	p := match.NormalizePattern(u.Pattern)
	if strings.Contains(p, "**") {
		return true
	}
	return strings.Count(p, "/") > strings.Count(u.Key, "/")
}

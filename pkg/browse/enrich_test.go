package browse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/limiter"
	"github.com/3leaps/blobtree/pkg/provider"
)

func TestList_IncludeAttributes(t *testing.T) {
	meta := newMemMeta()
	size := int64(99)
	mod := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	meta.attrs["/a.txt"] = &blob.Attributes{Size: &size, LastModified: &mod, MD5: "d41d8cd98f00b204e9800998ecf8427e"}
	meta.errs["/logs/err.log"] = &provider.ProviderError{Op: "HeadObject", Err: provider.ErrNotFound}

	src := sampleTree()
	got, err := New(src, WithMetadataFetcher(meta)).List(context.Background(), blob.ListOptions{
		Recurse:           true,
		IncludeAttributes: true,
	})
	require.NoError(t, err)
	assert.Equal(t, fullTree, paths(got))

	assert.Equal(t, []string{
		"/a.txt",
		"/docs/guide/intro.md",
		"/docs/readme.md",
		"/logs/2024/app.log",
		"/logs/err.log",
	}, meta.fetched())

	assert.Equal(t, int64(99), *got[0].Size)
	assert.Equal(t, mod, *got[0].LastModified)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", got[0].MD5)

	// Skipped items keep their listing attributes.
	readme := got[3]
	require.Equal(t, "/docs/readme.md", readme.FullPath)
	assert.Equal(t, int64(len("/docs/readme.md")), *readme.Size)
	assert.Empty(t, readme.MD5)
}

func TestList_IncludeAttributesOnlyForReturnedFiles(t *testing.T) {
	meta := newMemMeta()
	src := newMemSource("/1", "/2", "/3")

	_, err := New(src, WithMetadataFetcher(meta)).List(context.Background(), blob.ListOptions{
		MaxResults:        2,
		IncludeAttributes: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/1", "/2"}, meta.fetched())
}

func TestList_IncludeAttributesFailure(t *testing.T) {
	meta := newMemMeta()
	meta.errs["/docs/readme.md"] = errors.New("connection reset")

	_, err := New(sampleTree(), WithMetadataFetcher(meta)).List(context.Background(), blob.ListOptions{
		Recurse:           true,
		IncludeAttributes: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestEnricher_BoundsConcurrency(t *testing.T) {
	meta := newMemMeta()
	meta.delay = 2 * time.Millisecond

	var entries []*blob.Blob
	for i := range 25 {
		entries = append(entries, blob.NewFile(fmt.Sprintf("/f%02d", i)))
	}
	entries = append(entries, blob.NewFolder("/dir"))

	lim, err := limiter.New(2)
	require.NoError(t, err)

	e := NewEnricher(meta, lim, 10, nil)
	require.NoError(t, e.Enrich(context.Background(), entries))
	assert.Len(t, meta.fetched(), 25)
	assert.LessOrEqual(t, meta.maxInFlight.Load(), int64(2))
}

func TestEnricher_Canceled(t *testing.T) {
	meta := newMemMeta()
	meta.delay = 50 * time.Millisecond

	lim, err := limiter.New(4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(5*time.Millisecond, cancel)

	err = NewEnricher(meta, lim, 0, nil).Enrich(ctx, []*blob.Blob{blob.NewFile("/a"), blob.NewFile("/b")})
	assert.ErrorIs(t, err, context.Canceled)
}

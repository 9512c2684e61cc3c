//go:build cloudintegration

package s3_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/browse"
	"github.com/3leaps/blobtree/pkg/provider"
	"github.com/3leaps/blobtree/pkg/provider/s3"
	"github.com/3leaps/blobtree/test/cloudtest"
)

var tree = map[string]string{
	"logs/app.log":          "hello",
	"logs/2024/01/a.log":    "a",
	"logs/2024/02/b.log":    "bb",
	"logs/empty/":           "",
	"reports/q1.csv":        "1,2",
	"reports/.hidden/x.txt": "x",
}

func newProvider(t *testing.T, ctx context.Context, bucket string, delimiterWalk bool) *s3.Provider {
	t.Helper()
	p, err := s3.New(ctx, s3.Config{
		Bucket:          bucket,
		Endpoint:        cloudtest.Endpoint,
		Region:          cloudtest.Region,
		AccessKeyID:     cloudtest.AccessKeyID,
		SecretAccessKey: cloudtest.SecretAccessKey,
		ForcePathStyle:  true,
		MaxKeys:         2,
		DelimiterWalk:   delimiterWalk,
	})
	require.NoError(t, err)
	return p
}

func TestS3_Browse(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	bucket := cloudtest.CreateBucket(t, ctx)
	cloudtest.Seed(t, ctx, bucket, tree)

	for _, walk := range []bool{false, true} {
		b := browse.New(newProvider(t, ctx, bucket, walk), browse.WithPageSize(2))

		level, err := b.List(ctx, blob.ListOptions{FolderPath: "/logs"})
		require.NoError(t, err)
		var got []string
		for _, e := range level {
			got = append(got, e.String())
		}
		assert.ElementsMatch(t, []string{"folder /logs/2024", "folder /logs/empty", "file /logs/app.log"}, got)

		all, err := b.List(ctx, blob.ListOptions{FolderPath: "/logs", Recurse: true, IncludeAttributes: true})
		require.NoError(t, err)
		got = got[:0]
		for _, e := range all {
			got = append(got, e.String())
			if e.IsFile() {
				assert.NotEmpty(t, e.MD5, e.FullPath)
				assert.Equal(t, "cloudtest", e.Metadata["seeded-by"])
			}
		}
		assert.ElementsMatch(t, []string{
			"folder /logs/2024", "folder /logs/empty", "file /logs/app.log",
			"folder /logs/2024/01", "folder /logs/2024/02",
			"file /logs/2024/01/a.log", "file /logs/2024/02/b.log",
		}, got)
	}
}

func TestS3_StatAndPing(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	bucket := cloudtest.CreateBucket(t, ctx)
	cloudtest.Seed(t, ctx, bucket, tree)

	p := newProvider(t, ctx, bucket, false)
	require.NoError(t, p.Ping(ctx))

	b := browse.New(p)
	e, err := b.Stat(ctx, "/logs/app.log")
	require.NoError(t, err)
	require.NotNil(t, e.Size)
	assert.Equal(t, int64(5), *e.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", e.MD5)

	_, err = b.Stat(ctx, "/logs/none.log")
	assert.True(t, provider.IsNotFound(err))

	missing := newProvider(t, ctx, bucket+"-missing", false)
	assert.True(t, provider.IsBucketNotFound(missing.Ping(ctx)))
}

package minio

import (
	"context"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
	"github.com/3leaps/blobtree/pkg/provider"
)

// API is the subset of miniogo.Core the provider calls.
type API interface {
	ListObjectsV2(bucket, prefix, startAfter, continuationToken, delimiter string, maxKeys int) (miniogo.ListBucketV2Result, error)
	StatObject(ctx context.Context, bucket, key string, opts miniogo.StatObjectOptions) (miniogo.ObjectInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// Record is one listing entry: an object, or a common prefix when Prefix is
// set.
type Record struct {
	Object *miniogo.ObjectInfo
	Prefix string
}

// Key returns the object key or common prefix.
func (r Record) Key() string {
	if r.Object != nil {
		return r.Object.Key
	}
	return r.Prefix
}

// Provider lists a MinIO bucket. It is safe for concurrent use.
type Provider struct {
	api           API
	bucket        string
	maxKeys       int
	delimiterWalk bool
}

var (
	_ provider.Source[Record]  = (*Provider)(nil)
	_ provider.MetadataFetcher = (*Provider)(nil)
)

// New creates a provider connected to cfg.Endpoint.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core, err := miniogo.NewCore(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinIO, Bucket: cfg.Bucket, Err: err}
	}
	return NewWithAPI(core, cfg)
}

// NewWithAPI creates a provider over an existing client.
func NewWithAPI(api API, cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{
		api:           api,
		bucket:        cfg.Bucket,
		maxKeys:       maxKeys,
		delimiterWalk: cfg.DelimiterWalk,
	}, nil
}

// Capabilities reports a flat recursive listing unless DelimiterWalk is set.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{FlatRecursive: !p.delimiterWalk}
}

// Ping reports whether the bucket is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	ok, err := p.api.BucketExists(ctx, p.bucket)
	if err != nil {
		return p.wrapError("Ping", "", err)
	}
	if !ok {
		return &provider.ProviderError{Op: "Ping", Provider: provider.ProviderMinIO, Bucket: p.bucket, Err: provider.ErrBucketNotFound}
	}
	return nil
}

type listResult struct {
	res miniogo.ListBucketV2Result
	err error
}

// FetchPage lists one page under req.Directory.
//
// The SDK call takes no context, so it runs in its own goroutine and the
// page is abandoned when ctx ends first.
func (p *Provider) FetchPage(ctx context.Context, req provider.PageRequest) (*provider.Page[Record], error) {
	prefix := blobpath.ToKey(req.Directory, true)
	delimiter := ""
	if !req.Recursive {
		delimiter = blobpath.Separator
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > p.maxKeys {
		pageSize = p.maxKeys
	}

	done := make(chan listResult, 1)
	go func() {
		res, err := p.api.ListObjectsV2(p.bucket, prefix, "", req.Cursor, delimiter, pageSize)
		done <- listResult{res: res, err: err}
	}()

	var out listResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out = <-done:
	}
	if out.err != nil {
		return nil, p.wrapError("FetchPage", prefix, out.err)
	}

	page := &provider.Page[Record]{Items: mergeRecords(out.res.Contents, out.res.CommonPrefixes)}
	if out.res.IsTruncated {
		page.Next = out.res.NextContinuationToken
	}
	return page, nil
}

func mergeRecords(objects []miniogo.ObjectInfo, prefixes []miniogo.CommonPrefix) []Record {
	out := make([]Record, 0, len(objects)+len(prefixes))
	i, j := 0, 0
	for i < len(objects) || j < len(prefixes) {
		if j >= len(prefixes) || (i < len(objects) && objects[i].Key <= prefixes[j].Prefix) {
			out = append(out, Record{Object: &objects[i]})
			i++
			continue
		}
		out = append(out, Record{Prefix: prefixes[j].Prefix})
		j++
	}
	return out
}

// Convert maps a listing record to a Blob.
func (p *Provider) Convert(rec Record) (*blob.Blob, bool) {
	key := rec.Key()
	if key == "" || key == blobpath.Separator {
		return nil, false
	}
	if rec.Object == nil {
		return blob.NewFolder(blobpath.FromKey(key)), true
	}

	obj := rec.Object
	if strings.HasSuffix(key, blobpath.Separator) {
		b := blob.NewFolder(blobpath.FromKey(key))
		b.SetLastModified(obj.LastModified)
		return b, true
	}

	b := blob.NewFile(blobpath.FromKey(key))
	b.SetSize(obj.Size)
	b.SetLastModified(obj.LastModified)
	etag := strings.Trim(obj.ETag, "\"")
	b.MD5 = blob.MD5FromETag(etag)
	b.Properties.SetString("etag", etag)
	b.Properties.SetString("storage_class", obj.StorageClass)
	b.Properties.SetString("content_type", obj.ContentType)
	if len(obj.UserMetadata) > 0 {
		b.Metadata = blob.NormalizeMetadata(obj.UserMetadata, "x-amz-meta-")
	}
	return b, true
}

// FetchOne returns the StatObject record of the object at fullPath.
//
// User metadata comes from the x-amz-meta- headers with the prefix removed.
// The MD5 comes from Content-Md5 when the server sent it, else from a
// single-part ETag.
func (p *Provider) FetchOne(ctx context.Context, fullPath string) (*blob.Attributes, error) {
	key := blobpath.ToKey(fullPath, false)
	info, err := p.api.StatObject(ctx, p.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, p.wrapError("FetchOne", key, err)
	}

	etag := strings.Trim(info.ETag, "\"")
	md5 := blob.MD5FromBase64(info.Metadata.Get("Content-Md5"))
	if md5 == "" {
		md5 = blob.MD5FromETag(etag)
	}

	size := info.Size
	attrs := &blob.Attributes{
		Size:     &size,
		MD5:      md5,
		Metadata: blob.StripMetadataPrefix(info.Metadata, "X-Amz-Meta-"),
	}
	if !info.LastModified.IsZero() {
		mod := info.LastModified
		attrs.LastModified = &mod
	}
	attrs.Properties.SetString("etag", etag)
	attrs.Properties.SetString("content_type", info.ContentType)
	attrs.Properties.SetString("storage_class", info.StorageClass)
	attrs.Properties.SetString("version_id", info.VersionID)
	return attrs, nil
}

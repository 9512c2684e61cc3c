package s3

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
	"github.com/3leaps/blobtree/pkg/provider"
)

// API is the subset of the S3 client the provider calls.
type API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Record is one ListObjectsV2 entry: exactly one of Object or Prefix is set.
type Record struct {
	Object *types.Object
	Prefix *types.CommonPrefix
}

// Key returns the object key or common prefix.
func (r Record) Key() string {
	if r.Object != nil {
		return aws.ToString(r.Object.Key)
	}
	if r.Prefix != nil {
		return aws.ToString(r.Prefix.Prefix)
	}
	return ""
}

// Provider lists a bucket for the directory browser.
type Provider struct {
	client        API
	bucket        string
	maxKeys       int
	delimiterWalk bool
}

var (
	_ provider.Source[Record]  = (*Provider)(nil)
	_ provider.MetadataFetcher = (*Provider)(nil)
)

// New creates a new S3 provider with the given configuration.
//
// The provider uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderS3,
			Bucket:   cfg.Bucket,
			Err:      err,
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewWithClient(client, cfg)
}

// NewWithClient creates a provider over an existing client.
func NewWithClient(client API, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{
		client:        client,
		bucket:        cfg.Bucket,
		maxKeys:       maxKeys,
		delimiterWalk: cfg.DelimiterWalk,
	}, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Let the SDK resolve region from env/profile unless set explicitly.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)
	return awsCfg, nil
}

// Bucket returns the bucket name.
func (p *Provider) Bucket() string {
	return p.bucket
}

// Capabilities reports a flat recursive listing unless DelimiterWalk is set.
// S3 prefixes match whole keys, not leaf names, so prefix filtering stays
// client-side.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{FlatRecursive: !p.delimiterWalk}
}

// Ping reports whether the bucket is reachable with the configured
// credentials.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return p.wrapError("Ping", "", err)
	}
	return nil
}

// FetchPage lists one page under req.Directory.
//
// Non-recursive requests use the "/" delimiter so sub-folders come back as
// common prefixes. Objects and prefixes are merged in key order.
func (p *Provider) FetchPage(ctx context.Context, req provider.PageRequest) (*provider.Page[Record], error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(int32(clampMaxKeys(req.PageSize, p.maxKeys))),
	}
	if prefix := blobpath.ToKey(req.Directory, true); prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if !req.Recursive {
		input.Delimiter = aws.String(blobpath.Separator)
	}
	if req.Cursor != "" {
		input.ContinuationToken = aws.String(req.Cursor)
	}

	out, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, p.wrapError("FetchPage", aws.ToString(input.Prefix), err)
	}

	page := &provider.Page[Record]{Items: mergeRecords(out.Contents, out.CommonPrefixes)}
	if aws.ToBool(out.IsTruncated) {
		page.Next = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

// mergeRecords interleaves two key-sorted sequences.
func mergeRecords(objects []types.Object, prefixes []types.CommonPrefix) []Record {
	out := make([]Record, 0, len(objects)+len(prefixes))
	i, j := 0, 0
	for i < len(objects) || j < len(prefixes) {
		takeObject := j >= len(prefixes) ||
			(i < len(objects) && aws.ToString(objects[i].Key) <= aws.ToString(prefixes[j].Prefix))
		if takeObject {
			out = append(out, Record{Object: &objects[i]})
			i++
		} else {
			out = append(out, Record{Prefix: &prefixes[j]})
			j++
		}
	}
	return out
}

// Convert maps a listing record to a Blob. Keys ending in "/" are folder
// markers. Empty keys are skipped.
func (p *Provider) Convert(rec Record) (*blob.Blob, bool) {
	key := rec.Key()
	if key == "" || key == blobpath.Separator {
		return nil, false
	}

	if rec.Prefix != nil {
		return blob.NewFolder(blobpath.FromKey(key)), true
	}

	obj := rec.Object
	if strings.HasSuffix(key, blobpath.Separator) {
		b := blob.NewFolder(blobpath.FromKey(key))
		b.SetLastModified(aws.ToTime(obj.LastModified))
		return b, true
	}

	b := blob.NewFile(blobpath.FromKey(key))
	if obj.Size != nil {
		b.SetSize(*obj.Size)
	}
	b.SetLastModified(aws.ToTime(obj.LastModified))
	etag := cleanETag(aws.ToString(obj.ETag))
	b.MD5 = blob.MD5FromETag(etag)
	b.Properties.SetString("etag", etag)
	b.Properties.SetString("storage_class", string(obj.StorageClass))
	return b, true
}

// FetchOne returns the HeadObject record of the object at fullPath.
func (p *Provider) FetchOne(ctx context.Context, fullPath string) (*blob.Attributes, error) {
	key := blobpath.ToKey(fullPath, false)
	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.wrapError("FetchOne", key, err)
	}

	etag := cleanETag(aws.ToString(out.ETag))
	attrs := &blob.Attributes{
		Size:         out.ContentLength,
		LastModified: out.LastModified,
		MD5:          blob.MD5FromETag(etag),
		Metadata:     blob.NormalizeMetadata(out.Metadata, "x-amz-meta-"),
	}
	attrs.Properties.SetString("etag", etag)
	attrs.Properties.SetString("content_type", aws.ToString(out.ContentType))
	attrs.Properties.SetString("content_encoding", aws.ToString(out.ContentEncoding))
	attrs.Properties.SetString("cache_control", aws.ToString(out.CacheControl))
	attrs.Properties.SetString("storage_class", string(out.StorageClass))
	attrs.Properties.SetString("version_id", aws.ToString(out.VersionId))
	return attrs, nil
}

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if sentinel := sentinelForCode(apiErr.ErrorCode()); sentinel != nil {
			wrapped.Err = sentinel
			return wrapped
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.ResponseError != nil && respErr.Response != nil {
		if sentinel := sentinelForStatus(respErr.HTTPStatusCode()); sentinel != nil {
			wrapped.Err = sentinel
		}
		return wrapped
	}
	if apiErr != nil {
		return wrapped
	}

	// Fallback: match the message for errors that lost their type.
	msg := err.Error()
	for _, m := range messageSentinels {
		for _, needle := range m.needles {
			if strings.Contains(msg, needle) {
				wrapped.Err = m.sentinel
				return wrapped
			}
		}
	}
	return wrapped
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return provider.ErrNotFound
	case status == http.StatusForbidden:
		return provider.ErrAccessDenied
	case status == http.StatusUnauthorized:
		return provider.ErrInvalidCredentials
	case status == http.StatusTooManyRequests:
		return provider.ErrThrottled
	case status >= http.StatusInternalServerError:
		return provider.ErrProviderUnavailable
	}
	return nil
}

func sentinelForCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return provider.ErrNotFound
	case "NoSuchBucket":
		return provider.ErrBucketNotFound
	case "AccessDenied", "Forbidden":
		return provider.ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return provider.ErrInvalidCredentials
	case "SlowDown", "Throttling", "RequestLimitExceeded":
		return provider.ErrThrottled
	case "ServiceUnavailable", "InternalError":
		return provider.ErrProviderUnavailable
	}
	return nil
}

// Ordered: NoSuchBucket must win over the generic NotFound needles.
var messageSentinels = []struct {
	needles  []string
	sentinel error
}{
	{[]string{"NoSuchBucket"}, provider.ErrBucketNotFound},
	{[]string{"NoSuchKey", "NotFound"}, provider.ErrNotFound},
	{[]string{"AccessDenied", "Forbidden"}, provider.ErrAccessDenied},
	{[]string{"InvalidAccessKeyId", "SignatureDoesNotMatch"}, provider.ErrInvalidCredentials},
	{[]string{"SlowDown", "Throttling"}, provider.ErrThrottled},
	{[]string{"ServiceUnavailable"}, provider.ErrProviderUnavailable},
}

// cleanETag removes surrounding quotes from an ETag value.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// clampMaxKeys applies the provider default and the S3 page limit.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	return min(requested, MaxAllowedKeys)
}

// resolveRegion applies the us-east-1 fallback for AWS S3 after the SDK has
// resolved explicit, env and profile regions. Custom endpoints get no
// default.
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}

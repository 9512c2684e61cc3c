package source

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/blobtree/internal/config"
	"github.com/3leaps/blobtree/pkg/browse"
	"github.com/3leaps/blobtree/pkg/provider"
	fileprovider "github.com/3leaps/blobtree/pkg/provider/file"
	"github.com/3leaps/blobtree/pkg/provider/minio"
	"github.com/3leaps/blobtree/pkg/provider/s3"
)

// Browser is the backend-independent surface of a browse.Browser.
type Browser interface {
	browse.Lister
	browse.Stater
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Target is an opened backend.
type Target struct {
	Browser  Browser
	Provider provider.ProviderType
	Bucket   string
	Pinger   Pinger
}

// OpenFunc opens the backend a URI addresses.
type OpenFunc func(ctx context.Context, u *BlobURI) (*Target, error)

// Opener opens targets from configuration and caches them per backend and
// bucket. It is safe for concurrent use.
type Opener struct {
	cfg    *config.Config
	logger *zap.Logger

	mu      sync.Mutex
	targets map[string]*Target
}

// NewOpener creates an opener. A nil logger discards output.
func NewOpener(cfg *config.Config, logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{cfg: cfg, logger: logger, targets: make(map[string]*Target)}
}

// Open returns the target for u, opening it on first use.
func (o *Opener) Open(ctx context.Context, u *BlobURI) (*Target, error) {
	cacheKey := string(u.Provider) + "://" + u.Bucket

	o.mu.Lock()
	defer o.mu.Unlock()
	if t, ok := o.targets[cacheKey]; ok {
		return t, nil
	}

	t, err := o.open(ctx, u)
	if err != nil {
		return nil, err
	}
	o.targets[cacheKey] = t
	o.logger.Debug("Opened storage target",
		zap.String("provider", string(u.Provider)),
		zap.String("bucket", u.Bucket))
	return t, nil
}

func (o *Opener) browseOptions(p provider.ProviderType) []browse.Option {
	bc := o.cfg.Browse
	return []browse.Option{
		browse.WithLogger(o.logger.With(zap.String("provider", string(p)))),
		browse.WithPageSize(bc.PageSize),
		browse.WithChunkSize(bc.ChunkSize),
		browse.WithRateLimit(bc.RateLimit, bc.RateBurst),
		browse.WithDefaultParallelism(bc.Parallelism),
	}
}

func (o *Opener) open(ctx context.Context, u *BlobURI) (*Target, error) {
	switch u.Provider {
	case provider.ProviderS3:
		sc := o.cfg.S3
		p, err := s3.New(ctx, s3.Config{
			Bucket:          u.Bucket,
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			Profile:         sc.Profile,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			ForcePathStyle:  sc.ForcePathStyle,
			MaxKeys:         o.cfg.Browse.PageSize,
			DelimiterWalk:   sc.DelimiterWalk,
		})
		if err != nil {
			return nil, err
		}
		return &Target{
			Browser:  browse.New(p, o.browseOptions(u.Provider)...),
			Provider: u.Provider,
			Bucket:   u.Bucket,
			Pinger:   p,
		}, nil

	case provider.ProviderMinIO:
		mc := o.cfg.MinIO
		p, err := minio.New(minio.Config{
			Endpoint:      mc.Endpoint,
			Bucket:        u.Bucket,
			AccessKey:     mc.AccessKey,
			SecretKey:     mc.SecretKey,
			UseSSL:        mc.UseSSL,
			Region:        mc.Region,
			MaxKeys:       o.cfg.Browse.PageSize,
			DelimiterWalk: mc.DelimiterWalk,
		})
		if err != nil {
			return nil, err
		}
		return &Target{
			Browser:  browse.New(p, o.browseOptions(u.Provider)...),
			Provider: u.Provider,
			Bucket:   u.Bucket,
			Pinger:   p,
		}, nil

	case provider.ProviderFile:
		p, err := fileprovider.New(fileprovider.Config{BaseDir: o.cfg.File.Root})
		if err != nil {
			return nil, err
		}
		return &Target{
			Browser:  browse.New(p, o.browseOptions(u.Provider)...),
			Provider: u.Provider,
			Pinger:   p,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, u.Provider)
}

package browse

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/limiter"
	"github.com/3leaps/blobtree/pkg/provider"
)

// Enricher attaches full metadata records to listed files.
type Enricher struct {
	fetcher   provider.MetadataFetcher
	limiter   *limiter.Limiter
	chunkSize int
	logger    *zap.Logger
}

// NewEnricher creates an enricher that fetches through lim in batches of
// chunkSize. A nil logger disables logging.
func NewEnricher(fetcher provider.MetadataFetcher, lim *limiter.Limiter, chunkSize int, logger *zap.Logger) *Enricher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		fetcher:   fetcher,
		limiter:   lim,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Enrich fetches metadata for every file in entries and applies it in place.
// Folders are left untouched.
//
// Files whose record is missing or gone are skipped. Any other fetch error
// aborts the pass.
func (e *Enricher) Enrich(ctx context.Context, entries []*blob.Blob) error {
	var files []*blob.Blob
	for _, b := range entries {
		if b.IsFile() {
			files = append(files, b)
		}
	}

	for start := 0; start < len(files); start += e.chunkSize {
		end := min(start+e.chunkSize, len(files))
		if err := e.enrichChunk(ctx, files[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enricher) enrichChunk(ctx context.Context, chunk []*blob.Blob) error {
	attrs := make([]*blob.Attributes, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range chunk {
		g.Go(func() error {
			permit, err := e.limiter.AcquireOne(gctx)
			if err != nil {
				return err
			}
			defer permit.Release()

			a, err := e.fetcher.FetchOne(gctx, b.FullPath)
			if err != nil {
				if provider.IsNotFound(err) && gctx.Err() == nil {
					e.logger.Debug("Skipping metadata for missing object",
						zap.String("path", b.FullPath), zap.Error(err))
					return nil
				}
				return err
			}
			attrs[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, a := range attrs {
		chunk[i].Apply(a)
	}
	return nil
}

package browse

import (
	"go.uber.org/zap"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/provider"
)

const (
	// DefaultPageSize is the page size hint sent to backends.
	DefaultPageSize = 1000

	// DefaultChunkSize is the number of files enriched per batch.
	DefaultChunkSize = 10
)

type settings struct {
	logger    *zap.Logger
	meta      provider.MetadataFetcher
	pageSize  int
	chunkSize int
	rateLimit float64
	rateBurst int
	parallel  int
}

func defaultSettings() settings {
	return settings{
		logger:    zap.NewNop(),
		pageSize:  DefaultPageSize,
		chunkSize: DefaultChunkSize,
		parallel:  blob.DefaultParallelism,
	}
}

// Option configures a Browser.
type Option func(*settings)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetadataFetcher sets the fetcher used by the enrichment pass and by
// Stat.
func WithMetadataFetcher(mf provider.MetadataFetcher) Option {
	return func(s *settings) {
		s.meta = mf
	}
}

// WithPageSize sets the page size hint. Values <= 0 are ignored.
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithChunkSize sets how many files are enriched per batch. Values <= 0 are
// ignored.
func WithChunkSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithRateLimit caps backend calls per second across one List call.
// A non-positive rps disables rate limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

// WithDefaultParallelism sets the limiter size used when
// ListOptions.MaxDegreeOfParallelism is zero. Values <= 0 are ignored.
func WithDefaultParallelism(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.parallel = n
		}
	}
}

// Package browse implements the directory browsing engine: it lists one
// directory level or a whole subtree of any provider.Source, draining
// paginated results, bounding concurrent backend calls, synthesizing folders
// for flat backends, applying filters, and truncating the merged result.
//
// The engine has three phases per call:
//   - Drain: pull every page of a directory level through the limiter
//   - Filter: apply the file prefix and the caller's BrowseFilter
//   - Recurse: list surviving sub-folders concurrently and merge their
//     branch-local results once all branches complete
//
// Flat backends (provider.Capabilities.FlatRecursive) are drained once with a
// recursive request and their intermediate folders are synthesized.
package browse

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
	"github.com/3leaps/blobtree/pkg/limiter"
	"github.com/3leaps/blobtree/pkg/provider"
)

// ErrStalledCursor is returned when a backend hands back the cursor it was
// given, which would otherwise page forever.
var ErrStalledCursor = errors.New("continuation cursor did not advance")

// Lister is the backend-independent listing surface.
type Lister interface {
	List(ctx context.Context, opts blob.ListOptions) ([]*blob.Blob, error)
}

// Stater looks up a single entry.
type Stater interface {
	Stat(ctx context.Context, path string) (*blob.Blob, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Browser lists a provider.Source.
//
// A Browser holds no per-call state and is safe for concurrent use.
type Browser[T any] struct {
	src  provider.Source[T]
	caps provider.Capabilities
	cfg  settings
}

var (
	_ Lister = (*Browser[struct{}])(nil)
	_ Stater = (*Browser[struct{}])(nil)
)

// New creates a browser over src.
//
// If src also implements provider.MetadataFetcher it is used for the
// enrichment pass unless WithMetadataFetcher overrides it.
func New[T any](src provider.Source[T], opts ...Option) *Browser[T] {
	cfg := defaultSettings()
	if mf, ok := any(src).(provider.MetadataFetcher); ok {
		cfg.meta = mf
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Browser[T]{
		src:  src,
		caps: src.Capabilities(),
		cfg:  cfg,
	}
}

// List returns the entries selected by opts.
//
// The result is deduplicated by (FullPath, Kind) and truncated to
// opts.MaxResults. Callers get either the complete result, an error, or the
// context's error on cancellation; never a partial result.
func (b *Browser[T]) List(ctx context.Context, opts blob.ListOptions) ([]*blob.Blob, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	n := opts.MaxDegreeOfParallelism
	if n == 0 {
		n = b.cfg.parallel
	}
	lim, err := limiter.New(n, limiter.WithRate(b.cfg.rateLimit, b.cfg.rateBurst))
	if err != nil {
		return nil, &blob.ValidationError{Field: "MaxDegreeOfParallelism", Message: err.Error()}
	}

	run := &listing[T]{
		b:    b,
		opts: opts,
		lim:  lim,
		root: opts.Folder(),
	}

	start := time.Now()
	b.cfg.logger.Debug("Listing started",
		zap.String("folder", run.root),
		zap.String("prefix", opts.FilePrefix),
		zap.Bool("recurse", opts.Recurse),
		zap.Int("max_results", opts.MaxResults),
		zap.Int("parallelism", lim.Capacity()))

	var entries []*blob.Blob
	if opts.Recurse && b.caps.FlatRecursive {
		entries, err = run.listFlat(ctx)
	} else {
		entries, err = run.listTree(ctx, run.root, true)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	entries = Dedup(entries)
	entries = Truncate(entries, opts.MaxResults)

	if opts.IncludeAttributes && b.cfg.meta != nil {
		enricher := NewEnricher(b.cfg.meta, lim, b.cfg.chunkSize, b.cfg.logger)
		if err := enricher.Enrich(ctx, entries); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}

	b.cfg.logger.Debug("Listing complete",
		zap.String("folder", run.root),
		zap.Int("entries", len(entries)),
		zap.Int64("pages", run.pages.Load()),
		zap.Int64("vanished", run.vanished.Load()),
		zap.Duration("duration", time.Since(start)))

	return entries, nil
}

// listing carries the state of one List call.
type listing[T any] struct {
	b    *Browser[T]
	opts blob.ListOptions
	lim  *limiter.Limiter
	root string

	collected atomic.Int64
	pages     atomic.Int64
	vanished  atomic.Int64
}

// listTree lists dir and, when recursing, its sub-folders.
//
// Errors for the requested directory are returned as-is. A discovered child
// that disappeared before it was listed contributes an empty branch.
func (r *listing[T]) listTree(ctx context.Context, dir string, requested bool) ([]*blob.Blob, error) {
	entries, err := r.drain(ctx, dir, false)
	if err != nil {
		if !requested && provider.IsNotFound(err) && ctx.Err() == nil {
			r.vanished.Add(1)
			r.b.cfg.logger.Debug("Skipping vanished folder", zap.String("folder", dir), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	level := r.filterLevel(dir, entries)
	r.collected.Add(int64(len(level)))

	if !r.opts.Recurse {
		return level, nil
	}

	var folders []*blob.Blob
	for _, e := range level {
		if e.IsFolder() {
			folders = append(folders, e)
		}
	}
	if len(folders) == 0 {
		return level, nil
	}

	branches := make([][]*blob.Blob, len(folders))
	g, gctx := errgroup.WithContext(ctx)
	for i, folder := range folders {
		// Levels are always drained whole; once the cap is reached no new
		// branches start. collected is shared by sibling branches, so which
		// subtrees make it past the cap depends on fetch timing. Only the
		// cut itself and the result order are fixed.
		if r.opts.IsFull(int(r.collected.Load())) {
			break
		}
		g.Go(func() error {
			res, err := r.listTree(gctx, folder.FullPath, false)
			if err != nil {
				return err
			}
			branches[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := level
	for _, branch := range branches {
		out = append(out, branch...)
	}
	return out, nil
}

// listFlat lists the whole subtree of a FlatRecursive source with one
// recursive drain and synthesizes the missing intermediate folders.
func (r *listing[T]) listFlat(ctx context.Context) ([]*blob.Blob, error) {
	entries, err := r.drain(ctx, r.root, true)
	if err != nil {
		return nil, err
	}

	under := entries[:0]
	for _, e := range entries {
		if blobpath.IsUnder(e.FullPath, r.root) {
			under = append(under, e)
		}
	}

	all := SynthesizeFolders(r.root, under)
	return r.filterTree(all), nil
}

// drain pulls every page of dir and converts the records in page order.
func (r *listing[T]) drain(ctx context.Context, dir string, recursive bool) ([]*blob.Blob, error) {
	req := provider.PageRequest{
		Directory: dir,
		Recursive: recursive,
		PageSize:  r.b.cfg.pageSize,
	}
	if r.b.caps.ServerSidePrefix {
		req.Prefix = r.opts.FilePrefix
	}

	var out []*blob.Blob
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := r.fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		r.pages.Add(1)
		if page == nil {
			break
		}

		for _, rec := range page.Items {
			b, ok := r.b.src.Convert(rec)
			if !ok || b == nil {
				continue
			}
			out = append(out, b)
		}

		if page.Next == "" {
			break
		}
		if page.Next == req.Cursor {
			return nil, ErrStalledCursor
		}
		req.Cursor = page.Next
	}
	return out, nil
}

// fetch issues one page fetch while holding a limiter permit.
func (r *listing[T]) fetch(ctx context.Context, req provider.PageRequest) (*provider.Page[T], error) {
	permit, err := r.lim.AcquireOne(ctx)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	r.b.cfg.logger.Debug("Fetching page",
		zap.String("folder", req.Directory),
		zap.Bool("recursive", req.Recursive),
		zap.Bool("continued", req.Cursor != ""))

	return r.b.src.FetchPage(ctx, req)
}

// filterLevel keeps the direct children of dir that pass the prefix and
// browse filters.
func (r *listing[T]) filterLevel(dir string, entries []*blob.Blob) []*blob.Blob {
	out := make([]*blob.Blob, 0, len(entries))
	for _, e := range entries {
		// Drops the marker object of dir itself and anything a backend
		// returned outside dir.
		if !blobpath.IsUnder(e.FullPath, dir) {
			continue
		}
		if !r.passesPrefix(e) {
			continue
		}
		if r.opts.BrowseFilter != nil && !r.opts.BrowseFilter(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// filterTree applies the prefix and browse filters to a flat subtree.
// Everything below a rejected folder is dropped with it.
func (r *listing[T]) filterTree(entries []*blob.Blob) []*blob.Blob {
	rejected := make(map[string]struct{})
	if r.opts.BrowseFilter != nil {
		for _, e := range entries {
			if e.IsFolder() && !r.opts.BrowseFilter(e) {
				rejected[e.FullPath] = struct{}{}
			}
		}
	}

	out := make([]*blob.Blob, 0, len(entries))
	for _, e := range entries {
		if len(rejected) > 0 && underRejected(e.FullPath, r.root, rejected) {
			continue
		}
		if !r.passesPrefix(e) {
			continue
		}
		if e.IsFile() && r.opts.BrowseFilter != nil && !r.opts.BrowseFilter(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *listing[T]) passesPrefix(e *blob.Blob) bool {
	if r.opts.FilePrefix == "" || e.IsFolder() || r.b.caps.ServerSidePrefix {
		return true
	}
	return strings.HasPrefix(e.Name(), r.opts.FilePrefix)
}

// underRejected reports whether p, or any of its ancestors below root, is in
// rejected.
func underRejected(p, root string, rejected map[string]struct{}) bool {
	for cur := p; cur != root && cur != blobpath.Root; cur = blobpath.GetParent(cur) {
		if _, ok := rejected[cur]; ok {
			return true
		}
	}
	return false
}

// Stat returns the entry at path with its full metadata.
// It returns an error matching provider.ErrNotFound when nothing is there.
func (b *Browser[T]) Stat(ctx context.Context, path string) (*blob.Blob, error) {
	if b.cfg.meta == nil {
		return nil, errors.New("browse: source does not support metadata lookups")
	}
	if blobpath.HasDotDot(path) {
		return nil, &blob.ValidationError{Field: "path", Message: "must not contain '..' segments"}
	}
	full := blobpath.Normalize(path)
	if full == blobpath.Root {
		return blob.NewFolder(full), nil
	}

	attrs, err := b.cfg.meta.FetchOne(ctx, full)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, &provider.ProviderError{Op: "Stat", Key: full, Err: provider.ErrNotFound}
	}
	entry := blob.NewFile(full)
	entry.Apply(attrs)
	return entry, nil
}

// Exists reports whether a file exists at path.
func (b *Browser[T]) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if provider.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

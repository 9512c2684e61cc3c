// Package file lists a local directory tree for the directory browser.
//
// Blob paths map onto paths relative to BaseDir: "/logs/app.log" is
// BaseDir/logs/app.log.
package file

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
	"github.com/3leaps/blobtree/pkg/provider"
)

// DefaultPageSize is the page size used when a request does not set one.
const DefaultPageSize = 1000

// maxPending bounds the number of parked continuations.
const maxPending = 64

// Entry is one directory entry.
type Entry struct {
	// Path is the blob path of the entry.
	Path    string
	Dir     bool
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// Provider lists a directory tree rooted at BaseDir.
type Provider struct {
	baseDir string

	// Remainders of scans that did not fit one page, keyed by the cursor
	// handed out for them. A drain scans the tree once; an unknown cursor
	// falls back to a fresh scan.
	mu      sync.Mutex
	pending map[scanKey][]Entry
	order   []scanKey

	scans atomic.Int64
}

type scanKey struct {
	dir       string
	prefix    string
	cursor    string
	recursive bool
}

var (
	_ provider.Source[Entry]   = (*Provider)(nil)
	_ provider.MetadataFetcher = (*Provider)(nil)
)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := filepath.Clean(cfg.BaseDir)
	st, err := os.Stat(base)
	if err != nil {
		return nil, wrapError("New", base, err)
	}
	if !st.IsDir() {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Key: base, Err: fmt.Errorf("not a directory")}
	}
	return &Provider{baseDir: base, pending: make(map[scanKey][]Entry)}, nil
}

// Capabilities reports server-side prefix filtering and flat recursive
// listings.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{ServerSidePrefix: true, FlatRecursive: true}
}

// Ping reports whether BaseDir is still readable.
func (p *Provider) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(p.baseDir); err != nil {
		return wrapError("Ping", "", err)
	}
	return nil
}

// FetchPage lists one page of req.Directory in path order.
//
// The cursor is the blob path of the last returned entry; the next page
// starts strictly after it. A missing directory yields an empty page.
func (p *Provider) FetchPage(ctx context.Context, req provider.PageRequest) (*provider.Page[Entry], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := scanKey{dir: req.Directory, prefix: req.Prefix, cursor: req.Cursor, recursive: req.Recursive}
	entries, ok := p.takePending(key)
	if !ok {
		var err error
		entries, err = p.scan(ctx, req)
		if err != nil {
			return nil, wrapError("FetchPage", req.Directory, err)
		}
		if req.Cursor != "" {
			start := sort.Search(len(entries), func(i int) bool { return entries[i].Path > req.Cursor })
			entries = entries[start:]
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if len(entries) <= pageSize {
		return &provider.Page[Entry]{Items: entries}, nil
	}

	page := &provider.Page[Entry]{Items: entries[:pageSize:pageSize], Next: entries[pageSize-1].Path}
	key.cursor = page.Next
	p.putPending(key, entries[pageSize:])
	return page, nil
}

// scan reads req.Directory (or its whole subtree) sorted by path, with
// leaf names filtered by req.Prefix.
func (p *Provider) scan(ctx context.Context, req provider.PageRequest) ([]Entry, error) {
	p.scans.Add(1)

	var (
		entries []Entry
		err     error
	)
	if req.Recursive {
		entries, err = p.walk(ctx, req.Directory)
	} else {
		entries, err = p.readDir(req.Directory)
	}
	if err != nil {
		return nil, err
	}

	if req.Prefix != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Dir || strings.HasPrefix(blobpath.Name(e.Path), req.Prefix) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (p *Provider) takePending(key scanKey) ([]Entry, bool) {
	if key.cursor == "" {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, ok := p.pending[key]
	if !ok {
		return nil, false
	}
	delete(p.pending, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return entries, true
}

func (p *Provider) putPending(key scanKey, rest []Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[key]; !ok {
		p.order = append(p.order, key)
	}
	p.pending[key] = rest
	for len(p.order) > maxPending {
		delete(p.pending, p.order[0])
		p.order = p.order[1:]
	}
}

func (p *Provider) readDir(dir string) ([]Entry, error) {
	full, err := p.fullPath(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(full)
	if err != nil {
		if missingDir(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Entry, 0, len(des))
	for _, d := range des {
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between ReadDir and Info.
				continue
			}
			return nil, err
		}
		out = append(out, p.entry(blobpath.Combine(dir, d.Name()), info))
	}
	return out, nil
}

// walk lists the subtree under dir. Entries that vanish mid-walk are
// skipped; any other failure aborts the walk.
func (p *Provider) walk(ctx context.Context, dir string) ([]Entry, error) {
	root, err := p.fullPath(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if missingDir(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path != root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(p.baseDir, path)
		if err != nil {
			return err
		}
		out = append(out, p.entry(blobpath.FromKey(filepath.ToSlash(rel)), info))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) entry(path string, info fs.FileInfo) Entry {
	return Entry{
		Path:    path,
		Dir:     info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}
}

// Convert maps an Entry to a Blob.
func (p *Provider) Convert(e Entry) (*blob.Blob, bool) {
	if e.Path == "" || e.Path == blobpath.Root {
		return nil, false
	}
	if e.Dir {
		b := blob.NewFolder(e.Path)
		b.SetLastModified(e.ModTime)
		return b, true
	}
	b := blob.NewFile(e.Path)
	b.SetSize(e.Size)
	b.SetLastModified(e.ModTime)
	b.Properties.SetString("mode", e.Mode.String())
	return b, true
}

// FetchOne stats the file at fullPath and hashes its content.
func (p *Provider) FetchOne(ctx context.Context, fullPath string) (*blob.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := p.fullPath(fullPath)
	if err != nil {
		return nil, wrapError("FetchOne", fullPath, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, wrapError("FetchOne", fullPath, err)
	}
	if st.IsDir() {
		return nil, &provider.ProviderError{Op: "FetchOne", Provider: provider.ProviderFile, Key: fullPath, Err: provider.ErrNotFound}
	}

	sum, err := md5File(full)
	if err != nil {
		return nil, wrapError("FetchOne", fullPath, err)
	}

	size := st.Size()
	mod := st.ModTime()
	attrs := &blob.Attributes{Size: &size, LastModified: &mod, MD5: sum}
	attrs.Properties.SetString("content_type", mime.TypeByExtension(filepath.Ext(full)))
	attrs.Properties.SetString("mode", st.Mode().String())
	return attrs, nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (p *Provider) fullPath(blobPath string) (string, error) {
	if blobpath.HasDotDot(blobPath) {
		return "", fmt.Errorf("invalid path %q", blobPath)
	}
	key := blobpath.ToKey(blobpath.Normalize(blobPath), false)
	return filepath.Join(p.baseDir, filepath.FromSlash(key)), nil
}

// missingDir reports whether a listed directory is absent or is a file.
func missingDir(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func wrapError(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	if missingDir(err) {
		wrapped.Err = provider.ErrNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}

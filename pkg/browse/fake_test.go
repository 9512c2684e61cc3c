package browse

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
	"github.com/3leaps/blobtree/pkg/provider"
)

type fakeRec struct {
	path   string
	folder bool
	size   int64
}

// memSource is an in-memory Source. Paths ending in "/" are folders; other
// paths are files and imply their parent folders.
type memSource struct {
	caps     provider.Capabilities
	pageSize int
	delay    time.Duration

	tree map[string][]fakeRec
	flat []fakeRec
	errs map[string]error

	// stall makes every page return the cursor it was given.
	stall bool

	mu    sync.Mutex
	calls []provider.PageRequest

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newMemSource(paths ...string) *memSource {
	s := &memSource{
		pageSize: 1000,
		tree:     make(map[string][]fakeRec),
		errs:     make(map[string]error),
	}
	seen := make(map[string]bool)
	add := func(r fakeRec) {
		key := r.path + strconv.FormatBool(r.folder)
		if seen[key] {
			return
		}
		seen[key] = true
		parent := blobpath.GetParent(r.path)
		s.tree[parent] = append(s.tree[parent], r)
	}
	for _, p := range paths {
		folder := strings.HasSuffix(p, "/")
		full := blobpath.Normalize(p)
		segs := blobpath.Split(full)
		for i := 1; i < len(segs); i++ {
			add(fakeRec{path: "/" + strings.Join(segs[:i], "/"), folder: true})
		}
		rec := fakeRec{path: full, folder: folder, size: int64(len(full))}
		add(rec)
		s.flat = append(s.flat, rec)
	}
	sort.SliceStable(s.flat, func(i, j int) bool {
		return blobpath.ToKey(s.flat[i].path, s.flat[i].folder) < blobpath.ToKey(s.flat[j].path, s.flat[j].folder)
	})
	return s
}

func (s *memSource) Capabilities() provider.Capabilities { return s.caps }

func (s *memSource) Convert(r fakeRec) (*blob.Blob, bool) {
	if r.folder {
		return blob.NewFolder(r.path), true
	}
	b := blob.NewFile(r.path)
	b.SetSize(r.size)
	return b, true
}

func (s *memSource) FetchPage(ctx context.Context, req provider.PageRequest) (*provider.Page[fakeRec], error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}

	if err := s.errs[req.Directory]; err != nil {
		return nil, err
	}

	var items []fakeRec
	if req.Recursive {
		for _, r := range s.flat {
			if blobpath.IsUnder(r.path, req.Directory) {
				items = append(items, r)
			}
		}
	} else {
		items = append(items, s.tree[req.Directory]...)
	}
	if req.Prefix != "" {
		kept := items[:0]
		for _, r := range items {
			if r.folder || strings.HasPrefix(blobpath.Name(r.path), req.Prefix) {
				kept = append(kept, r)
			}
		}
		items = kept
	}

	start := 0
	if req.Cursor != "" {
		start, _ = strconv.Atoi(req.Cursor)
	}
	if s.stall {
		return &provider.Page[fakeRec]{Items: items, Next: "1"}, nil
	}
	end := min(start+s.pageSize, len(items))
	page := &provider.Page[fakeRec]{Items: items[start:end]}
	if end < len(items) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

func (s *memSource) requests() []provider.PageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.PageRequest(nil), s.calls...)
}

func (s *memSource) listedDirs() []string {
	var dirs []string
	for _, c := range s.requests() {
		if c.Cursor == "" {
			dirs = append(dirs, c.Directory)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// memMeta is an in-memory MetadataFetcher.
type memMeta struct {
	attrs map[string]*blob.Attributes
	errs  map[string]error
	delay time.Duration

	mu    sync.Mutex
	calls []string

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newMemMeta() *memMeta {
	return &memMeta{
		attrs: make(map[string]*blob.Attributes),
		errs:  make(map[string]error),
	}
}

func (m *memMeta) FetchOne(ctx context.Context, fullPath string) (*blob.Attributes, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, fullPath)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if err := m.errs[fullPath]; err != nil {
		return nil, err
	}
	return m.attrs[fullPath], nil
}

func (m *memMeta) fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.calls...)
	sort.Strings(out)
	return out
}

func paths(entries []*blob.Blob) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/3leaps/blobtree/internal/errors"
	"github.com/3leaps/blobtree/internal/source"
	"github.com/3leaps/blobtree/pkg/match"
	"github.com/3leaps/blobtree/pkg/output"
)

// BrowseDefaults apply when a request leaves a setting out.
type BrowseDefaults struct {
	Parallelism int
	MaxResults  int
	Timeout     time.Duration
	Filter      match.FilterConfig
}

// ListResponse is the JSON body of GET /v1/list.
type ListResponse struct {
	JobID    string                `json:"job_id"`
	Provider string                `json:"provider"`
	Bucket   string                `json:"bucket,omitempty"`
	Entries  []*output.BlobRecord  `json:"entries"`
	Summary  *output.SummaryRecord `json:"summary"`
}

// BrowseHandler serves listings and lookups over HTTP.
type BrowseHandler struct {
	open     source.OpenFunc
	defaults BrowseDefaults
	logger   *zap.Logger
}

// NewBrowseHandler creates a handler opening targets through open.
func NewBrowseHandler(open source.OpenFunc, defaults BrowseDefaults, logger *zap.Logger) *BrowseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowseHandler{open: open, defaults: defaults, logger: logger}
}

// List serves GET /v1/list.
//
// Query parameters: uri (required), recurse, prefix, max_results,
// attributes, parallel, include, exclude (repeatable), hidden, min_size,
// max_size, after, before, path_regex and format (json or jsonl).
func (h *BrowseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	u, err := parseURIParam(q)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	req, err := h.listRequest(q)
	if err != nil {
		respondWithError(w, r, apperrors.BadRequest(err))
		return
	}
	format := strings.ToLower(q.Get("format"))
	if format != "" && format != "json" && format != "jsonl" {
		respondWithError(w, r, apperrors.BadRequest(fmt.Errorf("unknown format %q (expected json or jsonl)", format)))
		return
	}

	opts, err := req.Options(u)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	target, err := h.open(ctx, u)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	start := time.Now()
	entries, err := target.Browser.List(ctx, opts)
	if err != nil {
		h.logger.Warn("Listing failed", zap.String("uri", u.String()), zap.Error(err))
		respondWithError(w, r, err)
		return
	}
	summary := output.Summarize(opts.Folder(), entries, opts.MaxResults, time.Since(start))
	jobID := r.Header.Get(apperrors.HeaderRequestID)

	if format == "jsonl" {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		jw := output.NewJSONLWriter(w, jobID, string(target.Provider))
		defer func() { _ = jw.Close() }()
		if err := output.WriteBlobs(ctx, jw, entries); err != nil {
			h.logger.Warn("Writing listing failed", zap.Error(err))
			return
		}
		_ = jw.WriteSummary(ctx, summary)
		return
	}

	if jobID == "" {
		jobID = output.NewJobID()
	}
	records := make([]*output.BlobRecord, len(entries))
	for i, e := range entries {
		records[i] = output.NewBlobRecord(e)
	}
	writeJSON(w, http.StatusOK, ListResponse{
		JobID:    jobID,
		Provider: string(target.Provider),
		Bucket:   target.Bucket,
		Entries:  records,
		Summary:  summary,
	})
}

// Stat serves GET /v1/stat?uri=.
func (h *BrowseHandler) Stat(w http.ResponseWriter, r *http.Request) {
	u, err := parseURIParam(r.URL.Query())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if u.IsPattern() {
		respondWithError(w, r, apperrors.BadRequest(fmt.Errorf("stat takes a single path, got pattern %q", u.Pattern)))
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	target, err := h.open(ctx, u)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	entry, err := target.Browser.Stat(ctx, u.Path())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, output.NewBlobRecord(entry))
}

func (h *BrowseHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.defaults.Timeout > 0 {
		return context.WithTimeout(ctx, h.defaults.Timeout)
	}
	return context.WithCancel(ctx)
}

func parseURIParam(q url.Values) (*source.BlobURI, error) {
	raw := q.Get("uri")
	if raw == "" {
		return nil, apperrors.BadRequest(fmt.Errorf("missing required parameter %q", "uri"))
	}
	u, err := source.ParseURI(raw)
	if err != nil {
		return nil, apperrors.BadRequest(err)
	}
	return u, nil
}

func (h *BrowseHandler) listRequest(q url.Values) (source.ListRequest, error) {
	req := source.ListRequest{
		FilePrefix:  q.Get("prefix"),
		MaxResults:  h.defaults.MaxResults,
		Parallelism: h.defaults.Parallelism,
		Selection: source.Selection{
			Includes: q["include"],
			Excludes: q["exclude"],
		},
	}

	var err error
	if req.Recurse, err = boolParam(q, "recurse"); err != nil {
		return req, err
	}
	if req.Attributes, err = boolParam(q, "attributes"); err != nil {
		return req, err
	}
	if req.Selection.IncludeHidden, err = boolParam(q, "hidden"); err != nil {
		return req, err
	}
	if n, ok, err := intParam(q, "max_results"); err != nil {
		return req, err
	} else if ok {
		req.MaxResults = n
	}
	if n, ok, err := intParam(q, "parallel"); err != nil {
		return req, err
	} else if ok {
		req.Parallelism = n
	}

	if minSize, maxSize := q.Get("min_size"), q.Get("max_size"); minSize != "" || maxSize != "" {
		req.Selection.Filter.Size = &match.SizeFilterConfig{Min: minSize, Max: maxSize}
	}
	if after, before := q.Get("after"), q.Get("before"); after != "" || before != "" {
		req.Selection.Filter.Modified = &match.DateFilterConfig{After: after, Before: before}
	}
	req.Selection.Filter.PathRegex = q.Get("path_regex")
	req.Selection = req.Selection.Merge(h.defaults.Filter)
	return req, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parameter %s: %q is not a boolean", name, raw)
	}
	return v, nil
}

func intParam(q url.Values, name string) (int, bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parameter %s: %q is not an integer", name, raw)
	}
	return v, true, nil
}

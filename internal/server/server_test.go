package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/3leaps/blobtree/internal/errors"
	"github.com/3leaps/blobtree/internal/server/handlers"
	"github.com/3leaps/blobtree/internal/source"
)

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New("127.0.0.1", 0)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestServer_Port(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"default port", 8080},
		{"custom port", 9000},
		{"zero port", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New("127.0.0.1", tt.port)
			assert.Equal(t, tt.port, srv.Port())
		})
	}
}

func TestServer_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", New("127.0.0.1", 8080).Addr())
	assert.Equal(t, "[::1]:9000", New("::1", 9000).Addr())
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := New("127.0.0.1", 0)

	req := httptest.NewRequest(http.MethodPost, "/version", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestServer_RoutesRegistered(t *testing.T) {
	handlers.InitHealthManager("test")

	srv := New("127.0.0.1", 0)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/health/startup", "/version"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestServer_ListAPIMountedOnlyWithHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	New("127.0.0.1", 0).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/list?uri=s3://b/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	open := func(ctx context.Context, u *source.BlobURI) (*source.Target, error) {
		return nil, source.ErrUnsupportedProvider
	}
	srv := New("127.0.0.1", 0, WithBrowseHandler(handlers.NewBrowseHandler(open, handlers.BrowseDefaults{}, nil)))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/list", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/stat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, New("127.0.0.1", 0).Shutdown(context.Background()))
}

func TestServer_WithErrorResponder(t *testing.T) {
	defer handlers.ResetHTTPErrorResponder()

	var seen error
	open := func(ctx context.Context, u *source.BlobURI) (*source.Target, error) {
		return nil, source.ErrUnsupportedProvider
	}
	srv := New("127.0.0.1", 0,
		WithBrowseHandler(handlers.NewBrowseHandler(open, handlers.BrowseDefaults{}, nil)),
		WithErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
			seen = err
			apperrors.RespondWithError(w, r, err)
		}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/list", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Error(t, seen)
}

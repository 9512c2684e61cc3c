package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/blobtree/pkg/provider"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantErr     error
		errContains string
		want        *BlobURI
	}{
		{
			name: "simple bucket",
			uri:  "s3://my-bucket",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket"},
		},
		{
			name: "bucket with trailing slash",
			uri:  "s3://my-bucket/",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket"},
		},
		{
			name: "bucket with key",
			uri:  "s3://my-bucket/path/to/object.txt",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket", Key: "path/to/object.txt"},
		},
		{
			name: "minio folder",
			uri:  "minio://data/path/to/prefix/",
			want: &BlobURI{Provider: provider.ProviderMinIO, Bucket: "data", Key: "path/to/prefix/"},
		},
		{
			name: "file path",
			uri:  "file:///var/log",
			want: &BlobURI{Provider: provider.ProviderFile, Key: "var/log"},
		},
		{
			name: "file root",
			uri:  "file:///",
			want: &BlobURI{Provider: provider.ProviderFile},
		},
		{
			name: "glob pattern",
			uri:  "s3://my-bucket/data/2024/**/*.parquet",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket", Key: "data/2024/", Pattern: "data/2024/**/*.parquet"},
		},
		{
			name: "star pattern at root",
			uri:  "s3://my-bucket/*.txt",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket", Pattern: "*.txt"},
		},
		{
			name: "question mark pattern",
			uri:  "s3://my-bucket/data/file?.csv",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket", Key: "data/", Pattern: "data/file?.csv"},
		},
		{
			name: "brace pattern",
			uri:  "s3://my-bucket/data/{a,b,c}.csv",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket", Key: "data/", Pattern: "data/{a,b,c}.csv"},
		},
		{
			name: "uppercase scheme",
			uri:  "S3://my-bucket/path",
			want: &BlobURI{Provider: provider.ProviderS3, Bucket: "my-bucket", Key: "path"},
		},
		{
			name:        "empty URI",
			uri:         "",
			wantErr:     ErrInvalidURI,
			errContains: "empty",
		},
		{
			name:        "missing scheme",
			uri:         "my-bucket/path",
			wantErr:     ErrInvalidURI,
			errContains: "missing scheme",
		},
		{
			name:        "unsupported scheme",
			uri:         "gcs://my-bucket/path",
			wantErr:     ErrUnsupportedProvider,
			errContains: "gcs",
		},
		{
			name:        "missing bucket",
			uri:         "s3:///path",
			wantErr:     ErrMissingBucket,
			errContains: "missing bucket",
		},
		{
			name:        "relative file path",
			uri:         "file://relative/dir",
			wantErr:     ErrInvalidURI,
			errContains: "absolute path",
		},
		{
			name:        "dot dot",
			uri:         "s3://b/a/../etc",
			wantErr:     ErrInvalidURI,
			errContains: "'..'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURI(tt.uri)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURI_EscapeAware(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantKey string
		wantPat string
	}{
		{"escaped asterisk is literal", `s3://bucket/data/file\*.txt`, "data/file*.txt", ""},
		{"escaped question mark is literal", `s3://bucket/data/file\?.txt`, "data/file?.txt", ""},
		{"escaped brackets are literal", `s3://bucket/data/\[backup\]/file.txt`, "data/[backup]/file.txt", ""},
		{"mixed escaped and unescaped glob", `s3://bucket/data/file\*/*.txt`, "data/file*/", `data/file\*/*.txt`},
		{"no escapes no glob", "s3://bucket/data/file.txt", "data/file.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, got.Key)
			assert.Equal(t, tt.wantPat, got.Pattern)
		})
	}
}

func TestBlobURI_String(t *testing.T) {
	tests := []struct {
		uri  *BlobURI
		want string
	}{
		{&BlobURI{Provider: provider.ProviderS3, Bucket: "bucket"}, "s3://bucket/"},
		{&BlobURI{Provider: provider.ProviderMinIO, Bucket: "bucket", Key: "a/b.txt"}, "minio://bucket/a/b.txt"},
		{&BlobURI{Provider: provider.ProviderS3, Bucket: "bucket", Key: "data/", Pattern: "data/**/*.csv"}, "s3://bucket/data/**/*.csv"},
		{&BlobURI{Provider: provider.ProviderFile, Key: "var/log"}, "file:///var/log"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.uri.String())
		})
	}
}

func TestBlobURI_Folder(t *testing.T) {
	tests := []struct {
		uri        string
		wantPath   string
		wantFolder string
	}{
		{"s3://b", "/", "/"},
		{"s3://b/logs/", "/logs", "/logs"},
		{"s3://b/logs/app.log", "/logs/app.log", "/logs/app.log"},
		{"s3://b/logs/2024/**/*.gz", "/logs/2024", "/logs/2024"},
		{"s3://b/logs/app-*.log", "/logs", "/logs"},
		{"s3://b/*.txt", "/", "/"},
		{"file:///var/log/*.log", "/var/log", "/var/log"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			u, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, u.Path())
			assert.Equal(t, tt.wantFolder, u.Folder())
		})
	}
}

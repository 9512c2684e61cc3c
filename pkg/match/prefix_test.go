package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePrefix(t *testing.T) {
	tests := []struct {
		pattern, want string
	}{
		{"logs/2024/**/*.gz", "logs/2024/"},
		{"*.json", ""},
		{"**", ""},
		{"logs/app-{a,b}/*", "logs/"},
		{"logs/app.log", "logs/app.log"},
		{"data/[0-9]*/*.csv", "data/"},
		{"logs/2024-*", "logs/"},
		{`logs/\[old\]/*.gz`, "logs/[old]/"},
		{`logs/file\*.txt`, "logs/file*.txt"},
		{`logs\2024\app.gz`, "logs/2024/app.gz"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePrefix(tt.pattern))
		})
	}
}

func TestDerivePrefixes(t *testing.T) {
	assert.Nil(t, DerivePrefixes(nil))
	assert.Equal(t, []string{"data/", "logs/"}, DerivePrefixes([]string{"logs/**", "logs/2024/**", "data/*.csv"}))
	assert.Equal(t, []string{""}, DerivePrefixes([]string{"logs/**", "**/*.json"}))
	assert.Equal(t, []string{"a/", "b/"}, DerivePrefixes([]string{"b/*", "a/*"}))
}

func TestIsGlobPattern(t *testing.T) {
	assert.True(t, IsGlobPattern("data/**/*.parquet"))
	assert.True(t, IsGlobPattern("data/file?.csv"))
	assert.False(t, IsGlobPattern(`data/file\*.txt`))
	assert.False(t, IsGlobPattern("path/to/file.txt"))
}

package cmd

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/blobtree/pkg/output"
)

var lsTree = map[string]string{
	"data/a.csv":        "1,2,3",
	"data/b.json":       "{}",
	"data/2024/c.csv":   "4,5",
	"data/2024/d.csv":   "6,7,8,9",
	"data/.cache/e.csv": "x",
	"top.txt":           "top",
}

// records parses JSONL output into blob paths and the summary.
func records(t *testing.T, stdout string) ([]string, *output.SummaryRecord) {
	t.Helper()
	var paths []string
	var summary *output.SummaryRecord
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		var env output.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &env))
		switch env.Type {
		case output.TypeBlob:
			var b output.BlobRecord
			require.NoError(t, json.Unmarshal(env.Data, &b))
			paths = append(paths, b.Path)
		case output.TypeSummary:
			summary = &output.SummaryRecord{}
			require.NoError(t, json.Unmarshal(env.Data, summary))
		default:
			t.Fatalf("unexpected record type %s", env.Type)
		}
	}
	return paths, summary
}

func TestLs_Level(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "ls", "file:///data")
	require.Equal(t, ExitSuccess, code, stderr)

	paths, summary := records(t, stdout)
	assert.ElementsMatch(t, []string{"/data/2024", "/data/a.csv", "/data/b.json"}, paths)
	require.NotNil(t, summary)
	assert.Equal(t, int64(2), summary.Files)
	assert.Equal(t, int64(1), summary.Folders)
	assert.False(t, summary.Truncated)
}

func TestLs_RecursiveWithFilters(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "ls", "file:///data", "-R", "--include", "**/*.csv", "--min-size", "4")
	require.Equal(t, ExitSuccess, code, stderr)

	paths, _ := records(t, stdout)
	assert.ElementsMatch(t, []string{"/data/2024", "/data/a.csv", "/data/2024/d.csv"}, paths)
}

func TestLs_Pattern(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "ls", "file:///data/*/*.csv", "--include-hidden")
	require.Equal(t, ExitSuccess, code, stderr)

	paths, _ := records(t, stdout)
	var files []string
	for _, p := range paths {
		if strings.HasSuffix(p, ".csv") {
			files = append(files, p)
		}
	}
	assert.ElementsMatch(t, []string{"/data/2024/c.csv", "/data/2024/d.csv", "/data/.cache/e.csv"}, files)
}

func TestLs_MaxResults(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "ls", "file:///data", "-R", "-n", "2")
	require.Equal(t, ExitSuccess, code, stderr)

	paths, summary := records(t, stdout)
	assert.Len(t, paths, 2)
	assert.True(t, summary.Truncated)
}

func TestLs_Table(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "ls", "file:///data", "--output", "table")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "/data/2024/")
	assert.Contains(t, stdout, "/data/a.csv")
}

func TestLs_YAML(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "ls", "file:///", "--prefix", "top", "--attributes", "-o", "yaml")
	require.Equal(t, ExitSuccess, code, stderr)

	var got []output.BlobRecord
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &got))
	var top *output.BlobRecord
	for i := range got {
		if got[i].Path == "/top.txt" {
			top = &got[i]
		}
	}
	require.NotNil(t, top)
	assert.NotEmpty(t, top.MD5)
}

func TestLs_Errors(t *testing.T) {
	writeTree(t, lsTree)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"bad scheme", []string{"ls", "ftp://host/x"}, ExitInvalidArgument},
		{"relative file", []string{"ls", "file://relative"}, ExitInvalidArgument},
		{"bad format", []string{"ls", "file:///data", "-o", "xml"}, ExitInvalidArgument},
		{"bad size", []string{"ls", "file:///data", "--min-size", "huge"}, ExitInvalidArgument},
		{"bad pattern", []string{"ls", "file:///data", "--exclude", "[oops"}, ExitInvalidArgument},
		{"negative max", []string{"ls", "file:///data", "-n", "-3"}, ExitInvalidArgument},
		{"no args", []string{"ls"}, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code := execute(t, tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestStat(t *testing.T) {
	writeTree(t, lsTree)

	stdout, stderr, code := execute(t, "stat", "file:///top.txt")
	require.Equal(t, ExitSuccess, code, stderr)

	var env output.Record
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stdout)), &env))
	var b output.BlobRecord
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, "/top.txt", b.Path)
	require.NotNil(t, b.Size)
	assert.Equal(t, int64(3), *b.Size)

	_, _, code = execute(t, "stat", "file:///missing.txt")
	assert.Equal(t, ExitNotFound, code)

	_, _, code = execute(t, "stat", "file:///data/*.csv")
	assert.Equal(t, ExitInvalidArgument, code)
}

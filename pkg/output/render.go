package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/blobtree/pkg/blob"
)

// Format selects a rendering.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name. Empty selects JSONL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSONL, nil
	case FormatJSONL, FormatTable, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected jsonl, table or yaml)", s)
	}
}

// WriteBlobs emits every entry through w in order.
func WriteBlobs(ctx context.Context, w Writer, entries []*blob.Blob) error {
	for _, e := range entries {
		if err := w.WriteBlob(ctx, NewBlobRecord(e)); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders entries as aligned columns: kind, size, modified, path.
func WriteTable(out io.Writer, entries []*blob.Blob) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tSIZE\tMODIFIED\tPATH")
	for _, e := range entries {
		size := "-"
		if e.Size != nil {
			size = humanize.IBytes(uint64(max(*e.Size, 0)))
		}
		modified := "-"
		if e.LastModified != nil {
			modified = e.LastModified.UTC().Format(time.RFC3339)
		}
		path := e.FullPath
		if e.IsFolder() {
			path += "/"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind, size, modified, path)
	}
	return tw.Flush()
}

// WriteYAML renders entries as a YAML sequence of BlobRecords.
func WriteYAML(out io.Writer, entries []*blob.Blob) error {
	recs := make([]*BlobRecord, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, NewBlobRecord(e))
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return &WriteError{Op: "yaml", Err: err}
	}
	return enc.Close()
}

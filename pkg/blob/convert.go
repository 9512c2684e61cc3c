package blob

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
)

// StripMetadataPrefix returns user metadata from a header-style map with the
// wire prefix removed. Matching is case-insensitive, keys are lower-cased,
// and entries without the prefix are dropped. Multi-valued headers keep the
// first value.
//
//	StripMetadataPrefix(http.Header{"X-Amz-Meta-Owner": {"ops"}}, "x-amz-meta-")
//	→ map[owner:ops]
func StripMetadataPrefix(h http.Header, prefix string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	prefix = strings.ToLower(prefix)
	out := make(map[string]string)
	for k, vs := range h {
		lk := strings.ToLower(k)
		if !strings.HasPrefix(lk, prefix) || len(vs) == 0 {
			continue
		}
		name := lk[len(prefix):]
		if name == "" {
			continue
		}
		out[name] = vs[0]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeMetadata lower-cases keys of an already-stripped metadata map and
// drops a leftover prefix if present.
func NormalizeMetadata(m map[string]string, prefix string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	prefix = strings.ToLower(prefix)
	out := make(map[string]string, len(m))
	for k, v := range m {
		lk := strings.ToLower(k)
		if prefix != "" {
			lk = strings.TrimPrefix(lk, prefix)
		}
		if lk == "" {
			continue
		}
		out[lk] = v
	}
	return out
}

// HexFromBase64 decodes a base64 (standard encoding) hash into lower-case hex.
// It returns "" for empty or undecodable input.
func HexFromBase64(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(raw)
}

// MD5FromBase64 decodes a base64 Content-MD5 value into hex.
// It returns "" unless the decoded value is 16 bytes long.
func MD5FromBase64(s string) string {
	h := HexFromBase64(s)
	if len(h) != 32 {
		return ""
	}
	return h
}

// MD5FromETag returns the hex MD5 carried by a single-part object ETag.
//
// Quotes are removed. Multipart ETags ("<hash>-<parts>") and anything that
// is not 32 hex characters yield "".
func MD5FromETag(etag string) string {
	etag = strings.ToLower(strings.Trim(etag, "\""))
	if len(etag) != 32 {
		return ""
	}
	if _, err := hex.DecodeString(etag); err != nil {
		return ""
	}
	return etag
}

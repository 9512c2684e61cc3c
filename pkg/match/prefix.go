package match

import (
	"sort"
	"strings"
)

// DerivePrefix returns the static key prefix of a pattern: everything up to
// the last separator before the first unescaped metacharacter, with escapes
// removed. A pattern without metacharacters is its own prefix.
//
//	"logs/2024/**/*.gz"   → "logs/2024/"
//	"*.json"              → ""
//	"logs/app-{a,b}/*"    → "logs/"
//	"logs/app.log"        → "logs/app.log"
//	"logs/\[old\]/*.gz"   → "logs/[old]/"
func DerivePrefix(pattern string) string {
	pattern = NormalizePattern(pattern)

	meta := firstMeta(pattern)
	if meta < 0 {
		return unescape(pattern)
	}

	cut := strings.LastIndex(pattern[:meta], "/")
	if cut < 0 {
		return ""
	}
	return unescape(pattern[:cut+1])
}

// DerivePrefixes derives the prefix of every pattern and drops prefixes
// covered by a shorter one. The result is sorted. [""] means some pattern
// can match anywhere.
//
//	["logs/**", "logs/2024/**", "data/*.csv"] → ["data/", "logs/"]
func DerivePrefixes(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}

	all := make([]string, 0, len(patterns))
	for _, p := range patterns {
		prefix := DerivePrefix(p)
		if prefix == "" {
			return []string{""}
		}
		all = append(all, prefix)
	}

	sort.Slice(all, func(i, j int) bool { return len(all[i]) < len(all[j]) })

	var kept []string
	for _, p := range all {
		covered := false
		for _, k := range kept {
			if strings.HasPrefix(p, k) {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, p)
		}
	}
	sort.Strings(kept)
	return kept
}

// IsGlobPattern reports whether pattern contains an unescaped metacharacter.
func IsGlobPattern(pattern string) bool {
	return firstMeta(pattern) >= 0
}

// firstMeta returns the index of the first unescaped '*', '?', '[' or '{',
// or -1.
func firstMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if i+1 < len(pattern) && strings.IndexByte(globEscapable, pattern[i+1]) >= 0 {
				i++
			}
		case '*', '?', '[', '{':
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(globEscapable, s[i+1]) >= 0 {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

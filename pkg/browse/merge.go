package browse

import (
	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/blobpath"
)

// PropImplicit marks folders that were synthesized from file paths rather
// than listed by the backend.
const PropImplicit = "implicit"

// Dedup removes repeated (FullPath, Kind) pairs, keeping the first occurrence
// and preserving order.
func Dedup(entries []*blob.Blob) []*blob.Blob {
	seen := make(map[blob.Key]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Truncate keeps the first max entries. A max of zero means unlimited.
func Truncate(entries []*blob.Blob, max int) []*blob.Blob {
	if max <= 0 || len(entries) <= max {
		return entries
	}
	return entries[:max]
}

// SynthesizeFolders returns entries with a folder inserted for every
// intermediate directory between root and each entry that the backend did not
// list itself. Each synthesized folder appears once, just before the first
// entry that implies it.
//
//	root "/a", entries [/a/b/1.txt /a/b/2.txt]
//	→ [folder /a/b, file /a/b/1.txt, file /a/b/2.txt]
func SynthesizeFolders(root string, entries []*blob.Blob) []*blob.Blob {
	root = blobpath.Normalize(root)

	present := make(map[string]struct{})
	for _, e := range entries {
		if e.IsFolder() {
			present[e.FullPath] = struct{}{}
		}
	}

	out := make([]*blob.Blob, 0, len(entries))
	for _, e := range entries {
		for _, dir := range ancestorsBelow(e.FullPath, root) {
			if _, ok := present[dir]; ok {
				continue
			}
			present[dir] = struct{}{}
			folder := blob.NewFolder(dir)
			folder.Properties.Set(PropImplicit, true)
			out = append(out, folder)
		}
		out = append(out, e)
	}
	return out
}

// ancestorsBelow lists the folders strictly between root and p, outermost
// first.
func ancestorsBelow(p, root string) []string {
	var chain []string
	for cur := blobpath.GetParent(p); cur != root && blobpath.IsUnder(cur, root); cur = blobpath.GetParent(cur) {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

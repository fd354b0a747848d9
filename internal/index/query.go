package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/muninn/internal/models"
)

// MaxSearchResults caps SearchByNameOrPath.
const MaxSearchResults = 10

// summaryPreview is the number of file names listed per folder.
const summaryPreview = 5

// Get returns a copy of the entry at path.
func (x *VaultIndex) Get(path string) (models.IndexedFile, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	f, ok := x.entries[path]
	if !ok {
		return models.IndexedFile{}, false
	}
	return f.Clone(), true
}

// Len returns the number of indexed files.
func (x *VaultIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

// All returns copies of every entry in index order.
func (x *VaultIndex) All() []models.IndexedFile {
	return x.filter(0, func(models.IndexedFile) bool { return true })
}

// SearchByNameOrPath returns up to MaxSearchResults entries whose name or
// path contains query, case-insensitively, in index order. Results are not
// ranked.
func (x *VaultIndex) SearchByNameOrPath(query string) []models.IndexedFile {
	q := strings.ToLower(query)
	return x.filter(MaxSearchResults, func(f models.IndexedFile) bool {
		return strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Path), q)
	})
}

// ByTag returns every entry carrying tag. The leading hash is optional.
func (x *VaultIndex) ByTag(tag string) []models.IndexedFile {
	want := "#" + strings.TrimPrefix(tag, "#")
	return x.filter(0, func(f models.IndexedFile) bool {
		for _, t := range f.Tags {
			if t == want {
				return true
			}
		}
		return false
	})
}

// ByExtension returns every entry with the given extension.
func (x *VaultIndex) ByExtension(ext string) []models.IndexedFile {
	want := strings.ToLower(strings.TrimPrefix(ext, "."))
	return x.filter(0, func(f models.IndexedFile) bool {
		return f.Extension == want
	})
}

// ByFolderPrefix returns every entry whose path starts with prefix.
func (x *VaultIndex) ByFolderPrefix(prefix string) []models.IndexedFile {
	prefix = strings.TrimPrefix(prefix, "/")
	return x.filter(0, func(f models.IndexedFile) bool {
		return strings.HasPrefix(f.Path, prefix)
	})
}

// TagCount is a tag with the number of files carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Tags returns every tag with its file count, sorted by tag.
func (x *VaultIndex) Tags() []TagCount {
	x.mu.RLock()
	counts := make(map[string]int)
	for _, p := range x.order {
		for _, t := range x.entries[p].Tags {
			counts[t]++
		}
	}
	x.mu.RUnlock()

	out := make([]TagCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TagCount{Tag: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// AllFolderPaths returns every folder containing a file, including all
// ancestors, sorted.
func (x *VaultIndex) AllFolderPaths() []string {
	x.mu.RLock()
	set := make(map[string]struct{})
	for _, p := range x.order {
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			set[strings.Join(parts[:i], "/")] = struct{}{}
		}
	}
	x.mu.RUnlock()

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// StructureSummary renders a folder-grouped listing of the vault for model
// context: one line per folder with its file count, followed by up to five
// file names and a "+N more" line when truncated.
func (x *VaultIndex) StructureSummary() string {
	x.mu.RLock()
	groups := make(map[string][]string)
	for _, p := range x.order {
		f := x.entries[p]
		folder := f.Folder()
		groups[folder] = append(groups[folder], f.Name)
	}
	total := len(x.order)
	x.mu.RUnlock()

	folders := make([]string, 0, len(groups))
	for f := range groups {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	var b strings.Builder
	fmt.Fprintf(&b, "Vault: %d files in %d folders\n", total, len(folders))
	for _, folder := range folders {
		names := groups[folder]
		label := folder + "/"
		if folder == "" {
			label = "/"
		}
		fmt.Fprintf(&b, "%s (%d files)\n", label, len(names))
		n := min(len(names), summaryPreview)
		for _, name := range names[:n] {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
		if extra := len(names) - n; extra > 0 {
			fmt.Fprintf(&b, "  +%d more\n", extra)
		}
	}
	return b.String()
}

// filter returns copies of matching entries in index order; limit 0 means
// unbounded.
func (x *VaultIndex) filter(limit int, match func(models.IndexedFile) bool) []models.IndexedFile {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := []models.IndexedFile{}
	for _, p := range x.order {
		f := x.entries[p]
		if !match(f) {
			continue
		}
		out = append(out, f.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

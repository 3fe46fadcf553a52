// Package library finds motion files on disk and keeps loaded motions.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wavemotion/internal/motion"
	"wavemotion/internal/motionfile"
)

// Entry is one motion name with the files that can provide it.
type Entry struct {
	Name       string
	Source     string // .bmd or JSON dump, may be empty
	Compressed string // .wmo, may be empty
}

// IsBMD reports whether the source is a BMD model.
func (e Entry) IsBMD() bool {
	return strings.EqualFold(filepath.Ext(e.Source), ".bmd")
}

// Index maps lowercase motion names to their files.
type Index struct {
	entries map[string]*Entry // stem.lower() → entry
}

// stem strips the directory and every known extension.
func stem(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range []string{".json.zst", ".json.lz4", ".json", ".bmd", motionfile.Ext} {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildIndex scans the given directories and subdirectories for source and
// compressed motions. Missing directories are skipped. When a name appears
// twice with the same kind the first directory wins.
func BuildIndex(dirs ...string) *Index {
	idx := &Index{entries: make(map[string]*Entry)}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			compressed := motionfile.IsMotionFile(path)
			source := motion.IsSourceFile(path) || strings.EqualFold(filepath.Ext(path), ".bmd")
			if !compressed && !source {
				return nil
			}
			name := stem(path)
			key := strings.ToLower(name)

			e, exists := idx.entries[key]
			if !exists {
				e = &Entry{Name: name}
				idx.entries[key] = e
			}
			switch {
			case compressed && e.Compressed == "":
				e.Compressed = path
			case source && e.Source == "":
				e.Source = path
			}
			return nil
		})
	}

	return idx
}

// Resolve returns the entry for a motion name, or (Entry{}, false).
func (idx *Index) Resolve(name string) (Entry, bool) {
	e, ok := idx.entries[strings.ToLower(stem(name))]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns all entries sorted by name.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Sources returns the entries that have a source file, sorted by name.
func (idx *Index) Sources() []Entry {
	var out []Entry
	for _, e := range idx.Entries() {
		if e.Source != "" {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of indexed motions.
func (idx *Index) Len() int {
	return len(idx.entries)
}

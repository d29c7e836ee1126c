// Package fs discovers interactions on disk.
package fs

import (
	iofs "io/fs"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker lists the files under a root that match the include globs and none
// of the exclude globs. Patterns use forward slashes and are matched against
// the path relative to the root.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// File is a matched file.
type File struct {
	Path    string // Absolute path
	RelPath string // Slash-separated path relative to the walk root
	Size    int64
}

// Walk returns the matching files in lexical order.
func (w *Walker) Walk(root string) ([]File, error) {
	var files []File

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && w.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.included(rel) || w.excluded(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Path: p, RelPath: rel, Size: info.Size()})
		return nil
	})

	return files, err
}

func (w *Walker) included(rel string) bool {
	return matchAny(w.includes, rel)
}

// excluded matches rel and, for bare names like ".git", any path segment.
func (w *Walker) excluded(rel string) bool {
	if matchAny(w.excludes, rel) {
		return true
	}
	return matchAny(w.excludes, path.Base(rel))
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

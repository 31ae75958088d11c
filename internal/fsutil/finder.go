// Package fsutil locates workflow definition files on disk.
package fsutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindFiles walks root and returns every file whose name ends in ext, sorted
// lexicographically so callers see definitions in a stable order regardless
// of filesystem traversal quirks. Hidden directories (".git", ".venv" and the
// like) are not descended into; checked-out source trees live next to
// workflow files and must not be scanned for them.
func FindFiles(root, ext string) ([]string, error) {
	if ext == "" {
		return nil, fmt.Errorf("file extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

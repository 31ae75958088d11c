package coverage

import (
	"strings"
)

// Rewrite replaces the fromPrefix of every source root and class filename
// with toPrefix. The test runner records paths into the installed package
// tree (e.g. a site-packages directory); analysis services need them
// relative to the checked-out repository. Returns the number of rewritten
// entries.
func (r *Report) Rewrite(fromPrefix, toPrefix string) int {
	if fromPrefix == "" {
		return 0
	}

	count := 0
	for i := range r.Sources {
		if rewritten, ok := rewritePath(r.Sources[i].Path, fromPrefix, toPrefix); ok {
			r.Sources[i].Path = rewritten
			count++
		}
	}
	for pi := range r.Packages {
		for ci := range r.Packages[pi].Classes {
			c := &r.Packages[pi].Classes[ci]
			if rewritten, ok := rewritePath(c.Filename, fromPrefix, toPrefix); ok {
				c.Filename = rewritten
				count++
			}
		}
	}
	return count
}

// rewritePath swaps the prefix of a single path, tolerating surrounding
// whitespace the way the report generators emit it.
func rewritePath(path, fromPrefix, toPrefix string) (string, bool) {
	trimmed := strings.TrimSpace(path)
	if !strings.HasPrefix(trimmed, fromPrefix) {
		return path, false
	}
	return toPrefix + strings.TrimPrefix(trimmed, fromPrefix), true
}

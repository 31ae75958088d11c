package event

import "strings"

// matchPattern implements branch-filter globbing: `*` matches any run of
// characters within one slash-separated segment, `**` matches across
// segments. Everything else matches literally.
func matchPattern(pattern, branch string) bool {
	return matchSegments(splitSegments(pattern), splitSegments(branch))
}

func splitSegments(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// matchSegments matches pattern segments against branch segments.
func matchSegments(pat, segs []string) bool {
	if len(pat) == 0 {
		return len(segs) == 0
	}

	if pat[0] == "**" {
		// `**` may consume zero or more whole segments.
		for skip := 0; skip <= len(segs); skip++ {
			if matchSegments(pat[1:], segs[skip:]) {
				return true
			}
		}
		return false
	}

	if len(segs) == 0 {
		return false
	}
	if !matchSegment(pat[0], segs[0]) {
		return false
	}
	return matchSegments(pat[1:], segs[1:])
}

// matchSegment matches one pattern segment, where `*` is a wildcard for any
// run of characters (not crossing a slash).
func matchSegment(pattern, seg string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == seg
	}

	if !strings.HasPrefix(seg, parts[0]) {
		return false
	}
	seg = seg[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(seg, last) {
		return false
	}
	seg = seg[:len(seg)-len(last)]

	for _, mid := range parts[1 : len(parts)-1] {
		idx := strings.Index(seg, mid)
		if idx < 0 {
			return false
		}
		seg = seg[idx+len(mid):]
	}
	return true
}

package navtree

import "strings"

// Locate performs the viewer's positional lookup: it returns the position
// of the last index entry that sorts at or before url. The position is also
// the number of the navtreeindex script covering url. When every entry
// sorts after url, Locate returns 0 and fallback is true, and the viewer
// shows the root page instead.
//
// Comparison is byte-wise, which matches the viewer for ASCII URLs.
func Locate(index []string, url string) (chunk int, fallback bool) {
	i := -1
	for i+1 < len(index) && index[i+1] <= url {
		i++
	}
	if i < 0 {
		return 0, true
	}
	return i, false
}

// NormalizeAnchor strips characters the viewer drops from a fragment before
// lookup: everything except letters, digits, underscore and hyphen.
func NormalizeAnchor(url string) string {
	page, frag, ok := strings.Cut(url, "#")
	if !ok {
		return url
	}
	var b strings.Builder
	for _, r := range frag {
		if r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return page
	}
	return page + "#" + b.String()
}

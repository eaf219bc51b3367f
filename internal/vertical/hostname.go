package vertical

import (
	"net"
	"strings"
)

// knownSuffixes are stripped from the end of a hostname before matching.
// At most one is removed; the longest match wins.
var knownSuffixes = []string{".com", ".org", ".net"}

// NormalizeHostname returns the canonical tenant key for a raw Host value:
// surrounding space and any port removed, lowercased, one leading "www." stripped.
func NormalizeHostname(raw string) string {
	h := strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	h = strings.TrimSuffix(strings.ToLower(h), ".")
	return strings.TrimPrefix(h, "www.")
}

// Normalize returns the form used for keyword matching and topic extraction:
// NormalizeHostname plus exactly one trailing .com/.org/.net removed.
func Normalize(raw string) string {
	h := NormalizeHostname(raw)
	best := ""
	for _, s := range knownSuffixes {
		if strings.HasSuffix(h, s) && len(s) > len(best) {
			best = s
		}
	}
	return strings.TrimSuffix(h, best)
}

package vertical

import "strings"

// Match describes why a hostname was assigned to a vertical.
// Keyword is empty when the fallback vertical was chosen.
type Match struct {
	Vertical string `json:"vertical"`
	Keyword  string `json:"keyword,omitempty"`
}

// Classifier maps hostnames to vertical keys.
type Classifier struct {
	taxonomy *Taxonomy
}

// NewClassifier creates a Classifier over t.
func NewClassifier(t *Taxonomy) *Classifier {
	return &Classifier{taxonomy: t}
}

// Classify returns the key of the first vertical, in declaration order, that has
// any keyword contained in the normalized hostname. Hostnames that match several
// verticals resolve to the earliest declared one.
func (c *Classifier) Classify(hostname string) string {
	return c.Match(hostname).Vertical
}

// Match is Classify that also reports the winning keyword.
func (c *Classifier) Match(hostname string) Match {
	clean := Normalize(hostname)
	for _, def := range c.taxonomy.defs {
		if def.IsFallback() {
			continue
		}
		for _, kw := range def.Keywords {
			if strings.Contains(clean, kw) {
				return Match{Vertical: def.Key, Keyword: kw}
			}
		}
	}
	return Match{Vertical: c.taxonomy.Fallback().Key}
}

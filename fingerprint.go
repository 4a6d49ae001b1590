package fulltext

import "strings"

// FingerprintWindow is how much of a document is searched for fingerprints
// that are not restricted to the head section.
const FingerprintWindow = 8000

// Fingerprint maps a literal markup substring to the hostname whose rules
// apply to pages containing it. Hosted blog platforms serve many domains
// from one template, so the generator meta tag identifies them better than
// the request host does.
type Fingerprint struct {
	Pattern  string `yaml:"pattern"`
	Hostname string `yaml:"hostname"`
	Head     bool   `yaml:"head"`
}

// FingerprintTable is an ordered list of fingerprints. The first match wins.
type FingerprintTable []Fingerprint

// DefaultFingerprints returns the fingerprints for common blog platforms.
func DefaultFingerprints() FingerprintTable {
	return FingerprintTable{
		{Pattern: `<meta name="generator" content="Posterous"`, Hostname: "fingerprint.posterous.com", Head: true},
		{Pattern: `<meta content='blogger' name='generator'`, Hostname: "fingerprint.blogspot.com", Head: true},
		{Pattern: `<meta name="generator" content="Blogger"`, Hostname: "fingerprint.blogspot.com", Head: true},
		{Pattern: `<meta name="generator" content="WordPress`, Hostname: "fingerprint.wordpress.com", Head: true},
	}
}

// Match returns the hostname of the first fingerprint found in html.
// Head-flagged fingerprints are searched in the <head> section only; the
// rest in the first FingerprintWindow bytes.
func (t FingerprintTable) Match(html string) (string, bool) {
	window := html
	if len(window) > FingerprintWindow {
		window = window[:FingerprintWindow]
	}

	var head string
	headFound := false
	for _, fp := range t {
		if fp.Pattern == "" {
			continue
		}
		haystack := window
		if fp.Head {
			if !headFound {
				head = headSection(html, window)
				headFound = true
			}
			haystack = head
		}
		if strings.Contains(haystack, fp.Pattern) {
			return fp.Hostname, true
		}
	}
	return "", false
}

// headSection returns the markup up to the closing head tag, or fallback
// when the document has none.
func headSection(html, fallback string) string {
	if i := indexFold(html, "</head"); i >= 0 {
		return html[:i]
	}
	if i := indexFold(html, "<body"); i >= 0 {
		return html[:i]
	}
	return fallback
}

// indexFold is an ASCII case-insensitive strings.Index.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

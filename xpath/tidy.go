package xpath

import (
	"regexp"
	"strings"
)

var tidyPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Word and Office namespace tags (<o:p>, <st1:place>).
	{regexp.MustCompile(`(?i)</?(o|st1|w|v):[a-z]+[^>]*>`), ""},
	// Downlevel-revealed conditional comment markers.
	{regexp.MustCompile(`(?i)<!\[(if [^\]]*|endif)\]>`), ""},
	// XML declarations and processing instructions.
	{regexp.MustCompile(`<\?[^>]*\?>`), ""},
	// Stray closing tags with no name.
	{regexp.MustCompile(`</\s*>`), ""},
	// Runs of three or more <br> become a paragraph break.
	{regexp.MustCompile(`(?i)(<br\s*/?>\s*){3,}`), "<br /><br />"},
}

// Tidy applies lenient cleanup to markup before parsing: it drops NUL
// bytes and invalid UTF-8, Office namespace tags, conditional comment
// markers and processing instructions.
func Tidy(markup string) string {
	markup = strings.ReplaceAll(markup, "\x00", "")
	markup = strings.ToValidUTF8(markup, "�")
	for _, p := range tidyPatterns {
		markup = p.re.ReplaceAllString(markup, p.repl)
	}
	return markup
}

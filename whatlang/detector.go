// Package whatlang detects article languages with
// github.com/RadhiFadlillah/whatlanggo.
package whatlang

import (
	"strings"

	"github.com/RadhiFadlillah/whatlanggo"
	"github.com/fwojciec/fulltext"
)

// DefaultSampleSize is how many bytes of text are inspected.
const DefaultSampleSize = 2000

// Ensure Detector implements fulltext.LanguageDetector at compile time.
var _ fulltext.LanguageDetector = (*Detector)(nil)

// Detector is a trigram language detector. It is fast and needs no model
// loading, at the cost of accuracy on short texts.
type Detector struct {
	sampleSize int
}

// NewDetector creates a new Detector.
func NewDetector() *Detector {
	return &Detector{sampleSize: DefaultSampleSize}
}

// Detect returns the ISO 639-1 code of text when the guess is reliable.
func (d *Detector) Detect(text string) (string, bool) {
	text = sample(text, d.sampleSize)
	if text == "" {
		return "", false
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", false
	}
	code := info.Lang.Iso6391()
	return code, code != ""
}

// sample trims text to at most n bytes without splitting a word.
func sample(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= n {
		return text
	}
	if i := strings.LastIndexByte(text[:n], ' '); i > 0 {
		return text[:i]
	}
	return strings.ToValidUTF8(text[:n], "")
}

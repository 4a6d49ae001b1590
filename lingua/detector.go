// Package lingua detects article languages with
// github.com/pemistahl/lingua-go.
package lingua

import (
	"strings"

	"github.com/fwojciec/fulltext"
	"github.com/pemistahl/lingua-go"
)

// DefaultSampleSize is how many bytes of text are inspected.
const DefaultSampleSize = 2000

// Ensure Detector implements fulltext.LanguageDetector at compile time.
var _ fulltext.LanguageDetector = (*Detector)(nil)

// Detector is an n-gram model detector. It is more accurate than trigram
// detection on short texts but loads its models lazily on first use.
type Detector struct {
	detector   lingua.LanguageDetector
	sampleSize int
}

// NewDetector creates a Detector for the given languages, or for every
// supported language when none are given.
func NewDetector(languages ...lingua.Language) *Detector {
	builder := lingua.NewLanguageDetectorBuilder()
	var b lingua.LanguageDetectorBuilder
	if len(languages) < 2 {
		b = builder.FromAllLanguages()
	} else {
		b = builder.FromLanguages(languages...)
	}
	return &Detector{
		detector:   b.WithMinimumRelativeDistance(0.1).Build(),
		sampleSize: DefaultSampleSize,
	}
}

// Detect returns the ISO 639-1 code of text when one language stands out.
func (d *Detector) Detect(text string) (string, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > d.sampleSize {
		text = strings.ToValidUTF8(text[:d.sampleSize], "")
	}
	if text == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

package fulltext

// LanguageDetector guesses the language of a text sample.
type LanguageDetector interface {
	// Detect returns an ISO 639-1 code. ok is false when the detector is
	// not confident.
	Detect(text string) (lang string, ok bool)
}

// LanguageMode controls when the language of an article is detected.
type LanguageMode int

const (
	// LanguageOff emits no language.
	LanguageOff LanguageMode = iota

	// LanguageDeclared emits the language declared by the page or feed.
	LanguageDeclared

	// LanguageDetectMissing detects when nothing is declared.
	LanguageDetectMissing

	// LanguageDetectAlways ignores declarations and always detects.
	LanguageDetectAlways
)

// MaxLanguageTagLen bounds emitted language tags. Longer values are
// usually junk scraped from attributes.
const MaxLanguageTagLen = 6

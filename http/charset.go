package http

import (
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// minConfidence is the chardet confidence needed to override the
// encoding guessed from markup.
const minConfidence = 60

// ToUTF8 converts an HTML body to UTF-8. The encoding comes from a byte
// order mark or the Content-Type header when present; otherwise valid
// UTF-8 is kept as is and anything else is sniffed. Bodies that cannot be
// decoded are returned unchanged.
func ToUTF8(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain {
		if utf8.Valid(body) {
			return body
		}
		if guess := detect(body); guess != nil {
			enc, name = guess, ""
		}
	}
	if name == "utf-8" || enc == encoding.Nop {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

func detect(body []byte) encoding.Encoding {
	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || result.Confidence < minConfidence {
		return nil
	}
	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return nil
	}
	return enc
}

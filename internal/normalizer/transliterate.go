package normalizer

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks while keeping the base letters
// ("Café" → "Cafe")
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// isMn reports whether the rune is a nonspacing combining mark
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// toASCII folds the input to plain ASCII: diacritics are stripped first so
// accented Latin letters keep their base form, anything still outside ASCII
// goes through unidecode, and whatever survives both is dropped
func toASCII(s string) string {
	s = StripDiacritics(s)
	if !isASCII(s) {
		s = unidecode.Unidecode(s)
	}
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for _, r := range s {
		if r >= 0x80 {
			return false
		}
	}
	return true
}

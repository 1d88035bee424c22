package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	mcPattern          = regexp.MustCompile(`\bMc([a-z])`)
	ordinalPattern     = regexp.MustCompile(`\b\d+[SNRT][tTdDhH]\b`)
	routeAbbrevPattern = regexp.MustCompile(`\b(C[rh]|S[rh]|[FR]m|Us)\b`)
	gridPattern        = regexp.MustCompile(`\b[NSEWnsew]\s?\d+\s?[NSEWnsew]\s?\d+\b`)
)

// titleCase fixes an ALL-CAPS value. Multi-word values are always repaired;
// a single word is only repaired when singleWord is set, so that bare
// acronyms survive untouched.
func titleCase(value string, singleWord bool) string {
	if isUpperString(value) && (strings.Contains(value, " ") || singleWord) {
		return mcReplace(wordTitle(value))
	}
	return value
}

// wordTitle uppercases the first letter of every letter run and lowercases
// the rest, leaving digits and punctuation in place
func wordTitle(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	prevLetter := false
	for _, r := range value {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// isUpperString reports whether the value has at least one cased letter and
// none of them lowercase
func isUpperString(value string) bool {
	hasCased := false
	for _, r := range value {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}

// mcReplace repairs Mc names that lost their inner capital ("Mchenry" → "McHenry")
func mcReplace(value string) string {
	return mcPattern.ReplaceAllStringFunc(value, func(m string) string {
		return "Mc" + strings.ToUpper(m[len(m)-1:])
	})
}

// usReplace rewrites the common period and space variants of "US"
func usReplace(value string) string {
	value = strings.ReplaceAll(value, "U.S.", "US")
	value = strings.ReplaceAll(value, "U. S.", "US")
	value = strings.ReplaceAll(value, "U S ", "US ")
	return value
}

// ordReplace lowercases improperly capitalized ordinal suffixes ("4Th" → "4th")
func ordReplace(value string) string {
	return ordinalPattern.ReplaceAllStringFunc(value, strings.ToLower)
}

// capRoutes uppercases shortened route designators ("Us Route 123" → "US Route 123",
// "Sr 99" → "SR 99")
func capRoutes(value string) string {
	return routeAbbrevPattern.ReplaceAllStringFunc(value, strings.ToUpper)
}

// gridJoin collapses Wisconsin-style grid house numbers into a single
// uppercase token ("N65w25055", "N65 W25055" → "N65W25055")
func gridJoin(value string) string {
	return gridPattern.ReplaceAllStringFunc(value, func(m string) string {
		return strings.ToUpper(strings.ReplaceAll(m, " ", ""))
	})
}

// hasLetter reports whether the token contains at least one letter
func hasLetter(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// isCapitalizedWord reports whether the token is an alphabetic word of at
// least two letters starting with an uppercase letter
func isCapitalizedWord(token string) bool {
	runes := []rune(token)
	if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

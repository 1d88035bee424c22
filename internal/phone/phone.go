// Package phone normalizes free-form North American phone strings into the
// canonical "+1 NNN-NNN-NNNN" form.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone reports input that is not a valid North American number.
// Malformed input is an expected data condition for scraped feeds, so it
// comes back as this value rather than anything fatal.
var ErrInvalidPhone = errors.New("not a valid North American phone number")

// Normalize strips all punctuation and renders the number as
// "+1 NNN-NNN-NNNN". It accepts ten digits, or eleven with a leading
// country 1. The numbering-plan rules run first; the phonenumbers metadata
// then rejects sequences the basic rules cannot see, like service codes.
func Normalize(raw string) (string, error) {
	digits := digitsOnly(raw)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}

	// Area code and exchange never start with 0 or 1
	if digits[0] < '2' || digits[3] < '2' {
		return "", ErrInvalidPhone
	}

	parsed, err := phonenumbers.Parse("+1"+digits, "US")
	if err != nil || !phonenumbers.IsValidNumber(parsed) || parsed.GetCountryCode() != 1 {
		return "", ErrInvalidPhone
	}

	return fmt.Sprintf("+1 %s-%s-%s", digits[0:3], digits[3:6], digits[6:10]), nil
}

func digitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package phone canonicalises customer phone numbers.
//
// Normalize reproduces the storefront's historical digit-count heuristic so
// existing rows keep matching. Parse runs a real libphonenumber validation and
// is what new writes should prefer.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultCountryCode is the calling code assumed for local numbers.
const DefaultCountryCode = "91"

// DefaultRegion is the ISO region matching DefaultCountryCode.
const DefaultRegion = "IN"

var ErrInvalid = errors.New("invalid phone number")

// Normalize canonicalises raw input into +<digits> using digit-count rules:
//
//	10 digits             -> +91XXXXXXXXXX
//	11 digits, leading 0  -> drop the 0, then +91
//	12 digits, leading 91 -> +91...
//	13 digits, leading 091 -> +91 + remaining 10
//	anything else         -> + followed by the digits
//
// Empty input (or input without digits) yields "".
func Normalize(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	cc := DefaultCountryCode
	switch {
	case len(digits) == 10:
		return "+" + cc + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return "+" + cc + digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, cc):
		return "+" + digits
	case len(digits) == 13 && strings.HasPrefix(digits, "0"+cc):
		return "+" + cc + digits[3:]
	default:
		return "+" + digits
	}
}

// Digits strips everything except ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse validates raw with libphonenumber (defaulting to India for local
// numbers) and returns the E.164 form.
func Parse(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	num, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %s", ErrInvalid, trimmed)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Canonical prefers a validated parse and falls back to the heuristic so
// numbers the library rejects are still stored in the historical shape.
func Canonical(raw string) (string, bool) {
	if e164, err := Parse(raw); err == nil {
		return e164, true
	}
	return Normalize(raw), false
}

// WithCountryCode turns the digits of a local number typed into the sign-in
// form into +<cc><digits>.
func WithCountryCode(countryCode, local string) string {
	cc := Digits(countryCode)
	if cc == "" {
		cc = DefaultCountryCode
	}
	digits := Digits(local)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(local), "+") {
		return "+" + digits
	}
	return "+" + cc + digits
}

package identity

import "strings"

// DefaultCountryCode is the calling code assumed for bare national numbers.
const DefaultCountryCode = "91"

// NormalizePhone canonicalizes an imported phone number. Ten-digit national
// numbers get the country calling code, twelve-digit numbers already
// carrying it get a plus, numbers that arrive with a plus pass through and
// anything else falls back to a raw plus-prefixed digit string. Empty or
// digit-free input yields "".
func NormalizePhone(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := onlyDigits(raw)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return "+" + countryCode + digits
	}
	if len(digits) == 12 && strings.HasPrefix(digits, countryCode) {
		return "+" + digits
	}
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	return "+" + digits
}

// LookupVariants returns the forms the backend may have stored the number
// in, in a fixed probe order: normalized, bare digits, normalized digits,
// then the with/without country-code pairs.
func LookupVariants(raw, countryCode string) []string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	normalized := NormalizePhone(raw, countryCode)
	digits := onlyDigits(raw)
	add(normalized)
	add(digits)
	add(onlyDigits(normalized))
	if len(digits) == 10 {
		add("+" + countryCode + digits)
		add(countryCode + digits)
	}
	if len(digits) == 12 && strings.HasPrefix(digits, countryCode) {
		add("+" + digits)
		add(digits[len(countryCode):])
	}
	return out
}

func onlyDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package models

import "strings"

// NormalizePhone reduces a counterpart phone number to its canonical form:
// digits only, prefixed with the country code when the number is too short
// to already carry one. Gateway JID suffixes ("@c.us", "@s.whatsapp.net")
// are stripped first.
func NormalizePhone(phone, defaultCountryCode string) string {
	if idx := strings.IndexByte(phone, '@'); idx >= 0 {
		phone = phone[:idx]
	}

	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	// Numbers without a country code are at most 11 digits (area + local)
	if defaultCountryCode != "" &&
		!strings.HasPrefix(digits, defaultCountryCode) &&
		len(digits) <= 11 {
		digits = defaultCountryCode + digits
	}

	return digits
}

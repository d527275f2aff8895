package utils

import "strings"

// NormalizePhone strips everything except digits. The phone doubles as the
// shared secret for ticket retrieval, so it must be stored canonically.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MinPhoneDigits is the shortest phone number accepted for ticket lookup.
const MinPhoneDigits = 9

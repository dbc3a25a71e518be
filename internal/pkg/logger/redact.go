package logger

import (
	"strings"
	"unicode/utf8"
)

// RedactEmail keeps the first 2 runes of the local part and the domain,
// replacing the rest with "****". Input is returned unchanged if:
// - empty
// - malformed (no '@' or '@' at either end)
// - the local part has fewer than 3 runes
func RedactEmail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return s
	}

	local, domain := s[:at], s[at+1:]
	if utf8.RuneCountInString(local) < 3 {
		return s
	}

	offset := 0
	for count := 0; count < 2 && offset < len(local); count++ {
		_, size := utf8.DecodeRuneInString(local[offset:])
		offset += size
	}

	return local[:offset] + "****@" + domain
}

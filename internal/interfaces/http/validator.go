package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxEmailLength  = 254
	MaxPhraseLength = 512
	MinPasswordLen  = 8
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// ValidEmail checks basic email shape.
func ValidEmail(s string) bool {
	return s != "" && len(s) <= MaxEmailLength && emailRe.MatchString(s)
}

// ValidPhone checks E.164 format with a leading +.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

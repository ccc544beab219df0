package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^[0-9+()\s-]+$`)
)

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool { return s != "" && emailRe.MatchString(s) }

const minPhoneDigits = 6

// ValidPhone reports whether s holds only digits, '+', spaces, hyphens or
// parentheses and at least six of them are digits.
func ValidPhone(s string) bool {
	if s == "" || !phoneRe.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// ParseNumber parses a form number.  Blank, non-numeric and non-finite
// input all report ok=false.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// roundSEK rounds half up to a whole krona.
func roundSEK(f float64) int64 {
	return int64(math.Floor(f + 0.5))
}

func textLen(s string) int { return utf8.RuneCountInString(s) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

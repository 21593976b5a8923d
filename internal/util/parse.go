package util

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return val
	}
	return defaultValue
}

// ParseFloat parses a string to a float64, returning defaultValue if parsing fails
func ParseFloat(s string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return val
	}
	return defaultValue
}

// ParseBool accepts "true"/"1" style flags; anything else is false
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// ClampLimit parses a page size, falling back to def and capping at max
func ClampLimit(s string, def, max int) int {
	n := ParseInt(s, def)
	if n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ParseOffset parses a non-negative offset
func ParseOffset(s string) int {
	n := ParseInt(s, 0)
	if n < 0 {
		return 0
	}
	return n
}

var (
	postNumberPattern = regexp.MustCompile(`post-(\d+)`)
	digitsPattern     = regexp.MustCompile(`\d+`)
)

// NumericPostID returns the legacy integer form of a post reference:
// "42" -> "42", "post-123-abc" -> "123", "x7y" -> "7". It returns "" when
// the reference carries no digits at all.
func NumericPostID(ref string) string {
	var digits string
	if m := postNumberPattern.FindStringSubmatch(ref); m != nil {
		digits = m[1]
	} else {
		digits = digitsPattern.FindString(ref)
	}
	if digits == "" {
		return ""
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return strconv.FormatInt(n, 10)
}

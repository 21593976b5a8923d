package util

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ExtractMentions extracts @username mentions from text content
// Returns a slice of unique usernames (lowercase, without @ symbol)
func ExtractMentions(content string) []string {
	return extractPrefixed(content, '@', 3, 30)
}

// ExtractHashtags returns unique lowercase #tags found in content
func ExtractHashtags(content string) []string {
	return extractPrefixed(content, '#', 1, 64)
}

func extractPrefixed(content string, prefix rune, minLen, maxLen int) []string {
	var found []string
	seen := make(map[string]bool)

	for _, word := range strings.Fields(content) {
		r, size := utf8.DecodeRuneInString(word)
		if r != prefix || len(word) <= size {
			continue
		}
		name := strings.TrimRightFunc(word[size:], func(r rune) bool {
			return unicode.IsPunct(r) && r != '_'
		})
		name = strings.ToLower(name)

		n := utf8.RuneCountInString(name)
		if !seen[name] && n >= minLen && n <= maxLen {
			seen[name] = true
			found = append(found, name)
		}
	}
	return found
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Preview cuts s to n runes and appends "..." when anything was removed
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return Truncate(s, n) + "..."
}

// RelativeTime renders a short "how long ago" label for t relative to now
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Package normalize holds the pure conversions between the upstream
// feed's loosely formatted fields and the values the rest of the system
// works with.
package normalize

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ParseCoordinate parses a coordinate that may use either '.' or ',' as
// decimal separator. Missing or unparseable input yields 0.
func ParseCoordinate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatWindowTimestamp renders t as "YYYY-MM-DD+HH:MM:SS", the exact
// literal the feed's dataInicial/dataFinal query parameters require.
func FormatWindowTimestamp(t time.Time) string {
	return t.Format("2006-01-02+15:04:05")
}

// ParseEpochMillis converts an epoch-millisecond string to a time.
// The zero time is returned for empty or non-numeric input.
func ParseEpochMillis(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// ForSearch lowercases s and strips diacritics so "São Paulo" matches
// "sao paulo". Empty input yields the empty string.
func ForSearch(s string) string {
	if s == "" {
		return ""
	}
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

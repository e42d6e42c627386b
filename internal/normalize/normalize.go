// Package normalize provides pure canonicalization helpers for lead intake:
// accent-insensitive text folding, digits-only phone forms, and tolerant
// date parsing for the loosely formatted timestamps external sources send.
package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, and recomposes,
// so "João" folds to "Joao".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Text canonicalizes free text for case/accent-insensitive matching:
// trim, lowercase, strip diacritics, collapse whitespace runs.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

var nonDigits = regexp.MustCompile(`\D`)

// Phone strips every non-digit character.
func Phone(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

var (
	minutePrecision = regexp.MustCompile(`T\d{2}:\d{2}$`)
	trailingOffset  = regexp.MustCompile(`(Z|[+-]\d{2}:\d{2}|[+-]\d{4})$`)
	compactOffset   = regexp.MustCompile(`([+-]\d{2})(\d{2})$`)
)

// defaultOffset is appended to inputs that carry no timezone information.
// It is a fixed regional assumption (UTC-3), deliberately not aware of
// timezone-database DST rules; callers depend on this exact behavior.
const defaultOffset = "-03:00"

// FlexibleDate parses the date shapes external callers send: bare dates
// (YYYY-MM-DD), date+minute (YYYY-MM-DDTHH:MM), or full timestamps, with or
// without an offset. Missing parts are filled in this order: midnight time,
// zero seconds, the fixed -03:00 offset; a compact ±HHMM offset is rewritten
// to ±HH:MM. Returns the UTC instant, or false if the input is empty or
// unparseable.
func FlexibleDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}

	if !strings.ContainsRune(s, 'T') {
		s += "T00:00:00"
	} else if minutePrecision.MatchString(s) {
		s += ":00"
	}

	if !trailingOffset.MatchString(s) {
		s += defaultOffset
	} else if m := compactOffset.FindStringSubmatch(s); m != nil {
		s = s[:len(s)-len(m[0])] + m[1] + ":" + m[2]
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}

	return t.UTC(), true
}

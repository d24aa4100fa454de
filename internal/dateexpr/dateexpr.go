// Package dateexpr expands dynamic date tokens and placeholders embedded in
// configuration strings, e.g. "sales_${yyyy-MM-dd-7d}" or "store_${store_nbr}".
//
// A date token is a format pattern with an optional signed offset:
//
//	${yyyyMMdd}           today, compact form
//	${yyyy-MM-dd+1d}      tomorrow
//	${yyyy-MM-dd HH:mm:ss-2H}  two hours ago, full timestamp
//
// Offsets support years (y), months (M), weeks (w), days (d), hours (H),
// minutes (m) and seconds (s), subject to the units each pattern allows.
// Month and year arithmetic clamps the day-of-month instead of overflowing
// into the next month.
package dateexpr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// pattern describes one supported date token: the literal prefix inside the
// braces, its Go time layout, and the offset units it accepts.
type pattern struct {
	token  string
	layout string
	units  string
}

// patterns are matched longest-token-first so that "yyyyMMddHHmmss" wins
// over "yyyyMMdd".
var patterns = []pattern{
	{"yyyy-MM-dd HH:mm:ss", "2006-01-02 15:04:05", "yMwdHms"},
	{"yyyyMMddHHmmss", "20060102150405", "yMwdHms"},
	{"yyyy-MM-dd", "2006-01-02", "yMwd"},
	{"yyyyMMdd", "20060102", "yMwd"},
	{"yyyy", "2006", "y"},
	{"MM", "01", "M"},
	{"dd", "02", "d"},
	{"HH", "15", "H"},
	{"mm", "04", "m"},
	{"ss", "05", "s"},
}

var (
	tokenRe  = regexp.MustCompile(`\$\{[^}]+\}`)
	offsetRe = regexp.MustCompile(`^([+-])(\d+)([yMwdHms])$`)
)

// IsDateToken reports whether the body of a ${...} token is a date pattern.
func IsDateToken(body string) bool {
	_, _, ok := matchPattern(body)
	return ok
}

// matchPattern splits a token body into its pattern and offset part.
func matchPattern(body string) (pattern, string, bool) {
	for _, p := range patterns {
		if !strings.HasPrefix(body, p.token) {
			continue
		}
		rest := body[len(p.token):]
		if rest == "" {
			return p, "", true
		}
		m := offsetRe.FindStringSubmatch(rest)
		if m == nil || !strings.Contains(p.units, m[3]) {
			continue
		}
		return p, rest, true
	}
	return pattern{}, "", false
}

// Expand replaces every date token in s, evaluated against base. Tokens that
// are not date patterns are left untouched.
func Expand(s string, base time.Time) string {
	return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		body := tok[2 : len(tok)-1]
		p, offset, ok := matchPattern(body)
		if !ok {
			return tok
		}
		return applyOffset(base, offset).Format(p.layout)
	})
}

// Substitute replaces known ${name} placeholders from values. Date tokens and
// unknown placeholders are left untouched.
func Substitute(s string, values map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		body := tok[2 : len(tok)-1]
		if IsDateToken(body) {
			return tok
		}
		if v, ok := values[body]; ok {
			return v
		}
		return tok
	})
}

// ExpandStrict substitutes placeholders then date tokens, and fails on any
// ${...} token that is neither. Key construction uses this form so a typo in
// a prefix template surfaces before anything is loaded.
func ExpandStrict(s string, base time.Time, values map[string]string) (string, error) {
	var missing []string
	out := tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		body := tok[2 : len(tok)-1]
		if p, offset, ok := matchPattern(body); ok {
			return applyOffset(base, offset).Format(p.layout)
		}
		if v, ok := values[body]; ok {
			return v
		}
		missing = append(missing, body)
		return tok
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholders: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// applyOffset shifts base by a parsed "+3d" style offset. An empty offset
// returns base unchanged.
func applyOffset(base time.Time, offset string) time.Time {
	if offset == "" {
		return base
	}
	m := offsetRe.FindStringSubmatch(offset)
	if m == nil {
		return base
	}
	amount, _ := strconv.Atoi(m[2])
	if m[1] == "-" {
		amount = -amount
	}
	switch m[3] {
	case "y":
		return addMonthsClamped(base, amount*12)
	case "M":
		return addMonthsClamped(base, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "d":
		return base.AddDate(0, 0, amount)
	case "H":
		return base.Add(time.Duration(amount) * time.Hour)
	case "m":
		return base.Add(time.Duration(amount) * time.Minute)
	case "s":
		return base.Add(time.Duration(amount) * time.Second)
	}
	return base
}

// addMonthsClamped shifts by whole months, clamping the day-of-month to the
// target month's length (Jan 31 +1M is Feb 28/29, not Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) - 1 + months
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	targetMonth := time.Month(m + 1)
	if max := daysInMonth(year, targetMonth); day > max {
		day = max
	}
	return time.Date(year, targetMonth, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// jobDateLayouts are the accepted forms for an externally supplied job date.
var jobDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseJobDate parses a job date in either date or date-time form.
func ParseJobDate(s string) (time.Time, error) {
	for _, layout := range jobDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported job date %q (want YYYY-MM-DD or YYYY-MM-DD HH:MM:SS)", s)
}

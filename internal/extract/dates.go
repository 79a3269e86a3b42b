package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrUnparsedDate is returned when a date expression cannot be resolved to a
// month and year.
var ErrUnparsedDate = errors.New("unparsed date")

var (
	dateTokenRe = regexp.MustCompile(`(?i)([a-z]{3,10})\s*(\d{4})`)
	monthYearRe = regexp.MustCompile(`^([A-Za-z]{3,10})\.?,?\s*(\d{4})$`)
	bareYearRe  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
)

var monthNames = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// DateToken is a "Month Year" pair found in free text. Month is whatever
// word preceded the year and is only validated when the token is parsed.
type DateToken struct {
	Month string
	Year  int
}

func (d DateToken) String() string {
	return d.Month + " " + strconv.Itoa(d.Year)
}

// FindDateTokens returns every month-name/year pair in text, in order.
func FindDateTokens(text string) []DateToken {
	matches := dateTokenRe.FindAllStringSubmatch(text, -1)
	tokens := make([]DateToken, 0, len(matches))
	for _, m := range matches {
		year, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		tokens = append(tokens, DateToken{Month: m[1], Year: year})
	}
	return tokens
}

// FindYear returns the year of the first date token in text, or the first
// bare four-digit year when the line carries no month.
func FindYear(text string) (int, bool) {
	if tokens := FindDateTokens(text); len(tokens) > 0 {
		return tokens[0].Year, true
	}
	m := bareYearRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

func parseMonth(name string) (time.Month, bool) {
	n := strings.ToLower(name)
	if len(n) < 3 {
		return 0, false
	}
	if n == "sept" {
		return time.September, true
	}
	for i, full := range monthNames {
		if strings.HasPrefix(full, n) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// ParseMonthYear resolves a date expression at month granularity. "Present"
// and "Now" resolve to now.
func ParseMonthYear(expr string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(expr)
	switch strings.ToLower(s) {
	case "present", "now":
		return now, nil
	}

	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, ok := parseMonth(m[1])
		if !ok {
			return time.Time{}, fmt.Errorf("%w: unknown month %q", ErrUnparsedDate, m[1])
		}
		year, _ := strconv.Atoi(m[2])
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsedDate, expr)
	}
	return t, nil
}

// MonthsBetween returns the whole-month span from start to end, clamped to
// zero. Either side failing to parse yields ErrUnparsedDate.
func MonthsBetween(start, end string, now time.Time) (int, error) {
	from, err := ParseMonthYear(start, now)
	if err != nil {
		return 0, err
	}
	to, err := ParseMonthYear(end, now)
	if err != nil {
		return 0, err
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	return max(0, months), nil
}

// MonthsOrZero is MonthsBetween with parse failures resolved to zero.
func MonthsOrZero(start, end string, now time.Time) int {
	months, err := MonthsBetween(start, end, now)
	if err != nil {
		return 0
	}
	return months
}

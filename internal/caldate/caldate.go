// Package caldate parses the day.month.year[ hour:minute] dates stored on meter records.
package caldate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the layout used for dates stamped on new readings.
const Layout = "02.01.2006 15:04"

var (
	ErrEmpty      = errors.New("empty_date")
	ErrMalformed  = errors.New("malformed_date")
	ErrOutOfRange = errors.New("date_out_of_range")
)

// ParseError carries the rejected input alongside one of the sentinel kinds.
type ParseError struct {
	Input string
	Kind  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse date %q: %s", e.Input, e.Kind)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// Date is a calendar date with an optional wall-clock time.
type Date struct {
	Day     int
	Month   int
	Year    int
	Hour    int
	Minute  int
	HasTime bool
}

// Parse accepts "d.m.y" and "d.m.y H:M". Two-digit years map to 2000+.
func Parse(text string) (Date, error) {
	return parse(text, 0)
}

// ParseWithDefaultYear behaves like Parse but fills a missing or empty year
// component with fallbackYear.
func ParseWithDefaultYear(text string, fallbackYear int) (Date, error) {
	return parse(text, fallbackYear)
}

func parse(text string, fallbackYear int) (Date, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Date{}, &ParseError{Input: text, Kind: ErrEmpty}
	}

	fields := strings.Fields(raw)
	parts := strings.Split(fields[0], ".")
	if len(parts) == 2 && fallbackYear > 0 {
		parts = append(parts, "")
	}
	if len(parts) != 3 {
		return Date{}, &ParseError{Input: text, Kind: ErrMalformed}
	}

	day, err := atoi(parts[0])
	if err != nil {
		return Date{}, &ParseError{Input: text, Kind: ErrMalformed}
	}
	month, err := atoi(parts[1])
	if err != nil {
		return Date{}, &ParseError{Input: text, Kind: ErrMalformed}
	}

	var year int
	if strings.TrimSpace(parts[2]) == "" && fallbackYear > 0 {
		year = fallbackYear
	} else {
		year, err = atoi(parts[2])
		if err != nil {
			return Date{}, &ParseError{Input: text, Kind: ErrMalformed}
		}
	}
	if year < 100 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return Date{}, &ParseError{Input: text, Kind: ErrOutOfRange}
	}

	d := Date{Day: day, Month: month, Year: year}
	if len(fields) > 1 {
		if hour, minute, ok := parseClock(fields[1]); ok {
			d.Hour, d.Minute, d.HasTime = hour, minute, true
		}
	}
	return d, nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// A time component that does not parse is ignored; the date part still counts.
func parseClock(text string) (int, int, bool) {
	hh, mm, found := strings.Cut(text, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := atoi(hh)
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	minute, err := atoi(mm)
	if err != nil || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atoi(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// FromTime converts a wall-clock time into a Date that carries the time of day.
func FromTime(t time.Time) Date {
	return Date{
		Day:     t.Day(),
		Month:   int(t.Month()),
		Year:    t.Year(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		HasTime: true,
	}
}

// Format renders t the way new readings are stamped.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// CompareDay orders by (year, month, day) and ignores the time of day.
func (d Date) CompareDay(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// Compare orders by day first, then by time of day.
func (d Date) Compare(o Date) int {
	if c := d.CompareDay(o); c != 0 {
		return c
	}
	if c := cmpInt(d.Hour, o.Hour); c != 0 {
		return c
	}
	return cmpInt(d.Minute, o.Minute)
}

// After reports whether d falls on a strictly later day than o.
func (d Date) After(o Date) bool {
	return d.CompareDay(o) > 0
}

// MonthKey groups dates by calendar month, e.g. "2024-03".
func (d Date) MonthKey() string {
	return fmt.Sprintf("%d-%02d", d.Year, d.Month)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

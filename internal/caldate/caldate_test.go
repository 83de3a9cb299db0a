package caldate

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Date
	}{
		{name: "two_digit_year", in: "14.10.24", want: Date{Day: 14, Month: 10, Year: 2024}},
		{name: "four_digit_year", in: "01.02.2025", want: Date{Day: 1, Month: 2, Year: 2025}},
		{name: "with_time", in: "15.11.2024 18:05", want: Date{Day: 15, Month: 11, Year: 2024, Hour: 18, Minute: 5, HasTime: true}},
		{name: "bad_time_ignored", in: "15.11.2024 late", want: Date{Day: 15, Month: 11, Year: 2024}},
		{name: "padded", in: "  3.4.23 ", want: Date{Day: 3, Month: 4, Year: 2023}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestParseErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind error
	}{
		{name: "empty", in: "   ", kind: ErrEmpty},
		{name: "words", in: "yesterday", kind: ErrMalformed},
		{name: "two_parts", in: "14.10", kind: ErrMalformed},
		{name: "non_numeric_month", in: "14.oct.24", kind: ErrMalformed},
		{name: "negative", in: "-1.10.24", kind: ErrMalformed},
		{name: "month_13", in: "01.13.24", kind: ErrOutOfRange},
		{name: "day_zero", in: "00.10.24", kind: ErrOutOfRange},
		{name: "february_31", in: "31.02.24", kind: ErrOutOfRange},
		{name: "february_29_common_year", in: "29.02.23", kind: ErrOutOfRange},
		{name: "april_31", in: "31.04.24 10:00", kind: ErrOutOfRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) || perr.Input != tc.in {
				t.Fatalf("expected ParseError carrying input, got %v", err)
			}
		})
	}
}

func TestParseWithDefaultYear(t *testing.T) {
	got, err := ParseWithDefaultYear("14.10", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year != 2026 || got.Month != 10 {
		t.Fatalf("expected 2026-10, got %s", got.MonthKey())
	}

	got, err = ParseWithDefaultYear("14.10.", 2026)
	if err != nil || got.Year != 2026 {
		t.Fatalf("expected empty year to default, got %+v err=%v", got, err)
	}

	got, err = ParseWithDefaultYear("14.10.23", 2026)
	if err != nil || got.Year != 2023 {
		t.Fatalf("explicit year must win, got %+v err=%v", got, err)
	}
}

func TestParseAcceptsMonthEnds(t *testing.T) {
	for _, in := range []string{"29.02.24", "31.01.24", "30.04.24", "31.12.23"} {
		if _, err := Parse(in); err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
	}
}

func TestAfterIsStrictOnDays(t *testing.T) {
	cutover, _ := Parse("14.10.24")
	same, _ := Parse("14.10.2024 23:59")
	next, _ := Parse("15.10.24")
	earlierYear, _ := Parse("31.12.23")

	if same.After(cutover) {
		t.Fatalf("same day must not be after")
	}
	if !next.After(cutover) {
		t.Fatalf("next day must be after")
	}
	if earlierYear.After(cutover) {
		t.Fatalf("earlier year must not be after")
	}
}

func TestCompareUsesTimeOfDay(t *testing.T) {
	morning, _ := Parse("15.11.2024 08:00")
	evening, _ := Parse("15.11.2024 20:30")
	if morning.Compare(evening) >= 0 {
		t.Fatalf("expected morning before evening")
	}
	if morning.CompareDay(evening) != 0 {
		t.Fatalf("expected same day")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	ts := time.Date(2025, time.March, 7, 9, 4, 0, 0, time.UTC)
	text := Format(ts)
	if text != "07.03.2025 09:04" {
		t.Fatalf("unexpected format %q", text)
	}
	got, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FromTime(ts) {
		t.Fatalf("expected %+v, got %+v", FromTime(ts), got)
	}
	if got.MonthKey() != "2025-03" {
		t.Fatalf("unexpected month key %q", got.MonthKey())
	}
}

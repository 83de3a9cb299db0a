// Package backup reads and writes the plain-text "<date> - <reading>" format.
package backup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/smallbiznis/meterbook/internal/caldate"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/smallbiznis/meterbook/internal/tariff"
)

var (
	ErrRead             = errors.New("backup_read_failed")
	ErrMissingSeparator = errors.New("missing_separator")
	ErrExtraSeparator   = errors.New("extra_separator")
	ErrInvalidReading   = errors.New("invalid_reading")
)

// LineError reports a rejected line by its 1-based number.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Parse reads backup lines into priced records. Each record's previous
// reading is the one before it, the first being the starting value. Rejected
// lines are skipped and returned joined in the error alongside the records
// that did parse.
func Parse(r io.Reader, policy tariff.Policy, newID func() string) ([]domain.MeterRecord, error) {
	scanner := bufio.NewScanner(r)
	var (
		records  []domain.MeterRecord
		lineErrs []error
		previous float64
		lineNo   int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		date, reading, err := parseLine(line)
		if err != nil {
			lineErrs = append(lineErrs, &LineError{Line: lineNo, Text: line, Err: err})
			continue
		}
		if previous > 0 && reading <= previous {
			lineErrs = append(lineErrs, &LineError{Line: lineNo, Text: line, Err: domain.ErrReadingNotGreater})
			continue
		}

		records = append(records, domain.NewRecord(newID(), date, previous, reading, policy))
		previous = reading
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("%w: %w", ErrRead, err)
	}

	return records, errors.Join(lineErrs...)
}

func parseLine(line string) (string, float64, error) {
	parts := strings.FieldsFunc(line, func(r rune) bool { return r == '-' || r == '–' })
	switch {
	case len(parts) < 2:
		return "", 0, ErrMissingSeparator
	case len(parts) > 2:
		return "", 0, ErrExtraSeparator
	}

	date := strings.TrimSpace(parts[0])
	if _, err := caldate.Parse(date); err != nil {
		return "", 0, err
	}

	reading, err := parseReading(parts[1])
	if err != nil {
		return "", 0, err
	}
	return date, reading, nil
}

// parseReading accepts plain decimal digits with at most one '.' or ','
// fraction separator. Exponents, hex and NaN/Inf spellings are rejected.
func parseReading(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, ErrInvalidReading
	}
	seenPoint := false
	for i, r := range text {
		switch {
		case r >= '0' && r <= '9':
		case (r == '.' || r == ',') && !seenPoint && i > 0 && i < len(text)-1:
			seenPoint = true
		default:
			return 0, ErrInvalidReading
		}
	}

	reading, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil || math.IsInf(reading, 0) {
		return 0, ErrInvalidReading
	}
	return reading, nil
}

// Export writes records sorted by date, oldest first, with readings truncated
// to whole units. Records whose date does not parse keep their relative order
// at the end.
func Export(w io.Writer, records []domain.MeterRecord) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Format: date - reading")
	fmt.Fprintln(bw, "# Example: 14.10.23 - 223")
	fmt.Fprintln(bw)

	for _, r := range sortByDate(records) {
		datePart, _, _ := strings.Cut(strings.TrimSpace(r.Date), " ")
		fmt.Fprintf(bw, "%s - %d\n", datePart, int64(r.CurrentReading))
	}
	return bw.Flush()
}

type dated struct {
	record domain.MeterRecord
	date   caldate.Date
	ok     bool
}

func sortByDate(records []domain.MeterRecord) []domain.MeterRecord {
	items := make([]dated, len(records))
	for i, r := range records {
		d, err := caldate.Parse(r.Date)
		items[i] = dated{record: r, date: d, ok: err == nil}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.date.Compare(b.date) < 0
	})

	out := make([]domain.MeterRecord, len(items))
	for i, it := range items {
		out[i] = it.record
	}
	return out
}

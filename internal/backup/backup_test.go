package backup

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/smallbiznis/meterbook/internal/caldate"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/smallbiznis/meterbook/internal/tariff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# Format: date - reading",
		"",
		"14.10.24 - 7000",
		"15.10.24–7027",
		"  16.11.24 -   7100  ",
	}, "\n")

	records, err := Parse(strings.NewReader(input), tariff.DefaultPolicy(), sequentialIDs())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.MeterRecord{ID: "id-1", Date: "14.10.24", PreviousReading: 0, CurrentReading: 7000}, records[0])
	assert.True(t, records[0].IsInitial())

	assert.Equal(t, 7000.0, records[1].PreviousReading)
	assert.Equal(t, 27.0, records[1].Consumption)
	assert.Equal(t, 135.0, records[1].Cost)

	assert.Equal(t, "16.11.24", records[2].Date)
	assert.Equal(t, 73.0, records[2].Consumption)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := "14.10.23 - 223\nnot a reading\n15.11.23 - lots\n99.99.99 - 5\n16.12.23 - 1875\n"

	records, err := Parse(strings.NewReader(input), tariff.DefaultPolicy(), sequentialIDs())
	require.Error(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 223.0, records[1].PreviousReading)
	assert.Equal(t, 1652.0, records[1].Consumption)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.ErrorIs(t, err, ErrMissingSeparator)
	assert.ErrorIs(t, err, ErrInvalidReading)
	assert.ErrorIs(t, err, caldate.ErrOutOfRange)
}

func TestParseSkipsNonNumericReadings(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "1e3", "0x1p4", "1.2.3", ".5", "5,", "-5"} {
		t.Run(raw, func(t *testing.T) {
			input := "14.10.23 - 223\n15.11.23 - " + raw + "\n16.12.23 - 1875\n"

			var records []domain.MeterRecord
			var err error
			require.NotPanics(t, func() {
				records, err = Parse(strings.NewReader(input), tariff.DefaultPolicy(), sequentialIDs())
			})
			require.Len(t, records, 2)
			assert.Equal(t, 1652.0, records[1].Consumption)

			var lineErr *LineError
			require.True(t, errors.As(err, &lineErr))
			assert.Equal(t, 2, lineErr.Line)
		})
	}
}

func TestParseAcceptsFractionalReadings(t *testing.T) {
	records, err := Parse(strings.NewReader("14.10.23 - 223.5\n15.11.23 - 224,5\n"), tariff.DefaultPolicy(), sequentialIDs())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1.0, records[1].Consumption)
}

func TestParseRejectsStraySeparator(t *testing.T) {
	input := "16.11.23 - 223\n17.12.23 - 22-3\n18.01.24 – 300\n"

	records, err := Parse(strings.NewReader(input), tariff.DefaultPolicy(), sequentialIDs())
	require.Len(t, records, 2)
	assert.Equal(t, 77.0, records[1].Consumption)
	assert.ErrorIs(t, err, ErrExtraSeparator)
}

func TestParseSkipsNonIncreasingReadings(t *testing.T) {
	input := "14.10.23 - 900\n15.11.23 - 100\n16.12.23 - 900\n17.01.24 - 950\n"

	records, err := Parse(strings.NewReader(input), tariff.DefaultPolicy(), sequentialIDs())
	require.Len(t, records, 2)
	assert.Equal(t, 900.0, records[1].PreviousReading)
	assert.Equal(t, 50.0, records[1].Consumption)
	for _, r := range records {
		assert.GreaterOrEqual(t, r.Consumption, 0.0)
		assert.GreaterOrEqual(t, r.Cost, 0.0)
	}

	assert.ErrorIs(t, err, domain.ErrReadingNotGreater)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 2)
}

func TestExportSortsAndTruncates(t *testing.T) {
	records := []domain.MeterRecord{
		{ID: "c", Date: "15.01.25 10:00", CurrentReading: 9861.9},
		{ID: "x", Date: "broken", CurrentReading: 1},
		{ID: "a", Date: "14.10.23", CurrentReading: 223},
		{ID: "b", Date: "15.11.2024 09:15", CurrentReading: 7839.4},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, records))

	want := "# Format: date - reading\n" +
		"# Example: 14.10.23 - 223\n" +
		"\n" +
		"14.10.23 - 223\n" +
		"15.11.2024 - 7839\n" +
		"15.01.25 - 9861\n" +
		"broken - 1\n"
	assert.Equal(t, want, buf.String())
}

func TestExportImportRoundTrip(t *testing.T) {
	input := "14.10.23 - 223\n15.11.23 - 917\n16.12.23 - 1875\n15.10.24 - 7027\n"
	policy := tariff.DefaultPolicy()

	first, err := Parse(strings.NewReader(input), policy, sequentialIDs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, first))

	second, err := Parse(&buf, policy, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Date, second[i].Date)
		assert.Equal(t, first[i].CurrentReading, second[i].CurrentReading)
		assert.Equal(t, first[i].Consumption, second[i].Consumption)
		assert.Equal(t, first[i].Cost, second[i].Cost)
	}
}

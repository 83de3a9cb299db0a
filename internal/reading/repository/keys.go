package repository

import (
	"fmt"
	"strconv"

	"github.com/smallbiznis/meterbook/internal/reading/domain"
)

const (
	keyPreviousReading    = "previous_reading"
	keyRecordsCount       = "records_count"
	keyMigrationCompleted = "migration_completed"
)

const (
	fieldID   = "id"
	fieldDate = "date"
	fieldPrev = "prev"
	fieldCurr = "curr"
	fieldCons = "cons"
	fieldCost = "cost"
)

var recordFields = []string{fieldID, fieldDate, fieldPrev, fieldCurr, fieldCons, fieldCost}

func recordKey(index int, field string) string {
	return fmt.Sprintf("record_%d_%s", index, field)
}

func recordKeys(index int) []string {
	keys := make([]string, len(recordFields))
	for i, field := range recordFields {
		keys[i] = recordKey(index, field)
	}
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encodeRecord(index int, r domain.MeterRecord) map[string]string {
	return map[string]string{
		recordKey(index, fieldID):   r.ID,
		recordKey(index, fieldDate): r.Date,
		recordKey(index, fieldPrev): formatFloat(r.PreviousReading),
		recordKey(index, fieldCurr): formatFloat(r.CurrentReading),
		recordKey(index, fieldCons): formatFloat(r.Consumption),
		recordKey(index, fieldCost): formatFloat(r.Cost),
	}
}

// decodeRecord returns false when any field of the index is missing or does
// not parse.
func decodeRecord(index int, values map[string]string) (domain.MeterRecord, bool) {
	get := func(field string) (string, bool) {
		v, ok := values[recordKey(index, field)]
		return v, ok
	}
	num := func(field string) (float64, bool) {
		raw, ok := get(field)
		if !ok {
			return 0, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		return v, err == nil
	}

	id, ok := get(fieldID)
	if !ok {
		return domain.MeterRecord{}, false
	}
	date, ok := get(fieldDate)
	if !ok {
		return domain.MeterRecord{}, false
	}
	prev, ok := num(fieldPrev)
	if !ok {
		return domain.MeterRecord{}, false
	}
	curr, ok := num(fieldCurr)
	if !ok {
		return domain.MeterRecord{}, false
	}
	cons, ok := num(fieldCons)
	if !ok {
		return domain.MeterRecord{}, false
	}
	cost, ok := num(fieldCost)
	if !ok {
		return domain.MeterRecord{}, false
	}

	return domain.MeterRecord{
		ID:              id,
		Date:            date,
		PreviousReading: prev,
		CurrentReading:  curr,
		Consumption:     cons,
		Cost:            cost,
	}, true
}

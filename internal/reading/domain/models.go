package domain

import (
	"github.com/smallbiznis/meterbook/internal/tariff"
)

// MeterRecord is one logged reading together with its derived consumption
// and cost.
type MeterRecord struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	PreviousReading float64 `json:"previous_reading"`
	CurrentReading  float64 `json:"current_reading"`
	Consumption     float64 `json:"consumption"`
	Cost            float64 `json:"cost"`
}

// IsInitial reports whether the record holds the meter's starting value.
func (r MeterRecord) IsInitial() bool {
	return r.PreviousReading == 0
}

// NewRecord prices a reading taken after previous. A zero previous marks the
// starting value, which carries no consumption.
func NewRecord(id, date string, previous, current float64, policy tariff.Policy) MeterRecord {
	consumption := 0.0
	if previous > 0 {
		consumption = current - previous
	}
	return MeterRecord{
		ID:              id,
		Date:            date,
		PreviousReading: previous,
		CurrentReading:  current,
		Consumption:     consumption,
		Cost:            policy.Cost(consumption, date),
	}
}

// Reprice returns a copy of records with every cost recomputed from the
// stored consumption and the record's own date.
func Reprice(records []MeterRecord, policy tariff.Policy) []MeterRecord {
	out := make([]MeterRecord, len(records))
	for i, r := range records {
		r.Cost = policy.Cost(r.Consumption, r.Date)
		out[i] = r
	}
	return out
}

// MonthlySummary is the consumption and cost of one calendar month.
type MonthlySummary struct {
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	MonthName        string  `json:"month_name"`
	TotalConsumption float64 `json:"total_consumption"`
	TotalCost        float64 `json:"total_cost"`
}

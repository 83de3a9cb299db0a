// Package summary groups meter records into calendar months.
package summary

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/meterbook/internal/caldate"
	"github.com/smallbiznis/meterbook/internal/clock"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"go.uber.org/zap"
)

const UnknownMonth = "Unknown"

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of month 1..12, or UnknownMonth.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return UnknownMonth
	}
	return monthNames[month-1]
}

type monthKey struct {
	year  int
	month int
}

type totals struct {
	consumption decimal.Decimal
	cost        decimal.Decimal
}

// Aggregator sums records per month. Dates without a year take the clock's
// current year.
type Aggregator struct {
	clock clock.Clock
	log   *zap.Logger
}

func NewAggregator(c clock.Clock, log *zap.Logger) *Aggregator {
	if c == nil {
		c = clock.NewSystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{clock: c, log: log.Named("summary")}
}

// AggregateByMonth returns one summary per month present in records, sorted by
// year then month. Records with unparseable dates are dropped.
func (a *Aggregator) AggregateByMonth(records []domain.MeterRecord) []domain.MonthlySummary {
	currentYear := a.clock.Now().Year()
	buckets := make(map[monthKey]*totals)

	for _, r := range records {
		d, err := caldate.ParseWithDefaultYear(r.Date, currentYear)
		if err != nil {
			a.log.Warn("dropping record with unparseable date",
				zap.String("record_id", r.ID),
				zap.String("date", r.Date),
				zap.Error(err),
			)
			continue
		}
		key := monthKey{year: d.Year, month: d.Month}
		t, ok := buckets[key]
		if !ok {
			t = &totals{}
			buckets[key] = t
		}
		t.consumption = t.consumption.Add(decimal.NewFromFloat(r.Consumption))
		t.cost = t.cost.Add(decimal.NewFromFloat(r.Cost))
	}

	keys := make([]monthKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]domain.MonthlySummary, 0, len(keys))
	for _, k := range keys {
		t := buckets[k]
		out = append(out, domain.MonthlySummary{
			Year:             k.year,
			Month:            k.month,
			MonthName:        MonthName(k.month),
			TotalConsumption: t.consumption.InexactFloat64(),
			TotalCost:        t.cost.Round(2).InexactFloat64(),
		})
	}
	return out
}

// AggregateByMonth aggregates with the system clock.
func AggregateByMonth(records []domain.MeterRecord) []domain.MonthlySummary {
	return NewAggregator(nil, nil).AggregateByMonth(records)
}

// Package xlsx renders records and monthly summaries as a spreadsheet.
package xlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
)

const (
	ReadingsSheet = "Readings"
	MonthlySheet  = "Monthly"
)

var Module = fx.Module("providers.xlsx",
	fx.Provide(New),
)

type Provider interface {
	Workbook(ctx context.Context, records []domain.MeterRecord, summaries []domain.MonthlySummary) ([]byte, error)
}

type ExcelProvider struct{}

func New() Provider {
	return &ExcelProvider{}
}

func (p *ExcelProvider) Workbook(ctx context.Context, records []domain.MeterRecord, summaries []domain.MonthlySummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReadingsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(MonthlySheet); err != nil {
		return nil, err
	}

	readingsHeader := []any{"ID", "Date", "Previous reading", "Current reading", "Consumption", "Cost"}
	if err := f.SetSheetRow(ReadingsSheet, "A1", &readingsHeader); err != nil {
		return nil, err
	}
	for i, r := range records {
		row := []any{r.ID, r.Date, r.PreviousReading, r.CurrentReading, r.Consumption, r.Cost}
		if err := f.SetSheetRow(ReadingsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	monthlyHeader := []any{"Year", "Month", "Month name", "Consumption", "Cost"}
	if err := f.SetSheetRow(MonthlySheet, "A1", &monthlyHeader); err != nil {
		return nil, err
	}
	for i, s := range summaries {
		row := []any{s.Year, s.Month, s.MonthName, s.TotalConsumption, s.TotalCost}
		if err := f.SetSheetRow(MonthlySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

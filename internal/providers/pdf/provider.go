package pdf

import (
	"context"
	"io"
	"time"

	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type Provider interface {
	MonthlyReport(ctx context.Context, data ReportData) (io.Reader, error)
}

type ReportData struct {
	Title       string
	GeneratedAt time.Time
	Summaries   []domain.MonthlySummary
}

type NoOpProvider struct{}

func (p *NoOpProvider) MonthlyReport(ctx context.Context, data ReportData) (io.Reader, error) {
	return nil, nil
}

package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

const defaultTitle = "Monthly electricity report"

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) MonthlyReport(ctx context.Context, data ReportData) (io.Reader, error) {
	title := data.Title
	if title == "" {
		title = defaultTitle
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		text.NewCol(12, "Generated: "+data.GeneratedAt.Format("02.01.2006 15:04"), props.Text{Size: 9}),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(4, "Month", header),
		text.NewCol(2, "Year", header),
		text.NewCol(3, "Consumption", headerRight),
		text.NewCol(3, "Cost", headerRight),
	)
	m.AddRow(1, line.NewCol(12))

	consumption := decimal.Zero
	cost := decimal.Zero
	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, s := range data.Summaries {
		m.AddRow(7,
			text.NewCol(4, s.MonthName, cell),
			text.NewCol(2, strconv.Itoa(s.Year), cell),
			text.NewCol(3, formatAmount(s.TotalConsumption), cellRight),
			text.NewCol(3, formatAmount(s.TotalCost), cellRight),
		)
		consumption = consumption.Add(decimal.NewFromFloat(s.TotalConsumption))
		cost = cost.Add(decimal.NewFromFloat(s.TotalCost))
	}

	m.AddRow(1, line.NewCol(12))
	m.AddRow(10,
		text.NewCol(4, "Total", header),
		col.New(2),
		text.NewCol(3, consumption.StringFixed(2), headerRight),
		text.NewCol(3, cost.StringFixed(2), headerRight),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate monthly report: %w", err)
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/meterbook/internal/providers/pdf"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) NextReminder(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"next":    s.reminder.Next(),
		"enabled": s.cfg.Reminder.Enabled,
	}})
}

func (s *Server) MonthlyReportPDF(c *gin.Context) {
	ctx := c.Request.Context()
	summaries, err := s.readingSvc.Summaries(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.MonthlyReport(ctx, pdf.ReportData{
		GeneratedAt: s.clock.Now(),
		Summaries:   summaries,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="monthly.pdf"`)
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) ReadingsWorkbook(c *gin.Context) {
	ctx := c.Request.Context()
	records, err := s.readingSvc.List(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summaries, err := s.readingSvc.Summaries(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := s.xlsx.Workbook(ctx, records, summaries)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="readings.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, body)
}

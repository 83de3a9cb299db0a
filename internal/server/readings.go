package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	readingdomain "github.com/smallbiznis/meterbook/internal/reading/domain"
)

// flexibleNumber accepts 123.4, "123.4" and "123,4".
type flexibleNumber string

func (n *flexibleNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = flexibleNumber(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexibleNumber(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

type createReadingRequest struct {
	CurrentReading flexibleNumber `json:"current_reading"`
	Date           string         `json:"date"`
}

type readingResponse struct {
	readingdomain.MeterRecord
	Initial bool `json:"initial"`
}

func toReadingResponse(r readingdomain.MeterRecord) readingResponse {
	return readingResponse{MeterRecord: r, Initial: r.IsInitial()}
}

func (s *Server) ListReadings(c *gin.Context) {
	records, err := s.readingSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]readingResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, toReadingResponse(r))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateReading(c *gin.Context) {
	var req createReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.readingSvc.Add(c.Request.Context(), readingdomain.AddRequest{
		CurrentReading: strings.TrimSpace(string(req.CurrentReading)),
		Date:           strings.TrimSpace(req.Date),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toReadingResponse(*record)})
}

func (s *Server) DeleteReading(c *gin.Context) {
	if err := s.readingSvc.Remove(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) PreviousReading(c *gin.Context) {
	value, err := s.readingSvc.PreviousReading(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"previous_reading": value}})
}

func (s *Server) ListSummaries(c *gin.Context) {
	summaries, err := s.readingSvc.Summaries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

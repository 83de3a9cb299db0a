package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ExportBackup(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.readingSvc.Export(c.Request.Context(), &buf); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="electricity_backup.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (s *Server) ImportBackup(c *gin.Context) {
	result, err := s.readingSvc.Import(c.Request.Context(), c.Request.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) MigrationStatus(c *gin.Context) {
	status, err := s.readingSvc.MigrationStatus(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) RunMigration(c *gin.Context) {
	status, err := s.readingSvc.MigrateHistorical(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) SkipMigration(c *gin.Context) {
	if err := s.readingSvc.SkipMigration(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	s.MigrationStatus(c)
}

func (s *Server) ResetMigration(c *gin.Context) {
	if err := s.readingSvc.ResetMigration(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	s.MigrationStatus(c)
}

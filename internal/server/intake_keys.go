package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	intakekeydomain "github.com/smallbiznis/dealflow/internal/intakekey/domain"
)

func (s *Server) ListIntakeKeys(c *gin.Context) {
	keys, err := s.intakeKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": keys})
}

// CreateIntakeKey returns the raw key. It is never shown again.
func (s *Server) CreateIntakeKey(c *gin.Context) {
	var req intakekeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.intakeKeySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RevokeIntakeKey(c *gin.Context) {
	if err := s.intakeKeySvc.Revoke(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

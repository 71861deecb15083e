package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
)

func (s *Server) ListDealerships(c *gin.Context) {
	items, err := s.dealershipSvc.ListDealerships(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// CreateDealership provisions the dealership, its default location and its
// principal together.
func (s *Server) CreateDealership(c *gin.Context) {
	var req dealershipdomain.CreateDealershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.dealershipSvc.CreateDealership(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) UpdateDealership(c *gin.Context) {
	var req dealershipdomain.UpdateDealershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.dealershipSvc.UpdateDealership(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteDealership(c *gin.Context) {
	if err := s.dealershipSvc.DeleteDealership(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) ListLocations(c *gin.Context) {
	items, err := s.dealershipSvc.ListLocations(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateLocation(c *gin.Context) {
	var req dealershipdomain.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.dealershipSvc.CreateLocation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) UpdateLocation(c *gin.Context) {
	var req dealershipdomain.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.dealershipSvc.UpdateLocation(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteLocation(c *gin.Context) {
	if err := s.dealershipSvc.DeleteLocation(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) ListRoles(c *gin.Context) {
	roles, err := s.dealershipSvc.ListRoles(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": roles})
}

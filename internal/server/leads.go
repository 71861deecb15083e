package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
)

type listLeadsQuery struct {
	Status         string `form:"status"`
	AssignedUserID string `form:"assigned_user_id"`
}

type updateLeadStatusRequest struct {
	Status string `json:"status"`
}

type postCommunicationRequest struct {
	Type      string   `json:"type"`
	Direction string   `json:"direction"`
	Subject   *string  `json:"subject"`
	Content   string   `json:"content"`
	Mentions  []string `json:"mentions"`
}

func (s *Server) ListLeads(c *gin.Context) {
	var query listLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leads, err := s.leadSvc.List(c.Request.Context(), leaddomain.ListLeadsRequest{
		Status:         strings.TrimSpace(query.Status),
		AssignedUserID: strings.TrimSpace(query.AssignedUserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": leads})
}

func (s *Server) CreateLead(c *gin.Context) {
	var req leaddomain.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.leadSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) GetLead(c *gin.Context) {
	item, err := s.leadSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateLead(c *gin.Context) {
	var req leaddomain.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.leadSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) UpdateLeadStatus(c *gin.Context) {
	var req updateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.leadSvc.UpdateStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// ListLeadCommunications returns the full transcript, oldest first.
func (s *Server) ListLeadCommunications(c *gin.Context) {
	items, err := s.messagingSvc.ListCommunicationsForLead(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) PostLeadCommunication(c *gin.Context) {
	var req postCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.messagingSvc.PostMessage(c.Request.Context(), messagingdomain.PostMessageRequest{
		LeadID:    strings.TrimSpace(c.Param("id")),
		Type:      req.Type,
		Direction: req.Direction,
		Subject:   req.Subject,
		Content:   req.Content,
		Mentions:  req.Mentions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

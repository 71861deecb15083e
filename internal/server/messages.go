package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
)

// inboundMessageRequest accepts both the snake_case and the camelCase lead
// id used by existing clients.
type inboundMessageRequest struct {
	LeadID      string  `json:"lead_id"`
	LeadIDCamel string  `json:"leadId"`
	Type        string  `json:"type"`
	Subject     *string `json:"subject"`
	Content     string  `json:"content"`
}

func (s *Server) ListMessages(c *gin.Context) {
	items, err := s.messagingSvc.ListMessages(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// PostInboundMessage records a customer reply as if it arrived on an
// external channel.
func (s *Server) PostInboundMessage(c *gin.Context) {
	var req inboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leadID := strings.TrimSpace(req.LeadID)
	if leadID == "" {
		leadID = strings.TrimSpace(req.LeadIDCamel)
	}

	created, err := s.messagingSvc.PostInbound(c.Request.Context(), messagingdomain.PostInboundRequest{
		LeadID:  leadID,
		Type:    req.Type,
		Subject: req.Subject,
		Content: req.Content,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

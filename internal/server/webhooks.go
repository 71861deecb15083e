package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/observability/logger"
	obscontext "github.com/smallbiznis/dealflow/internal/observability/context"
	"go.uber.org/zap"
)

// IngestLead accepts a lead from an external source. An intake key binds it
// to the key's dealership; without one the configured fallback applies.
func (s *Server) IngestLead(c *gin.Context) {
	var req leaddomain.IntakeLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dealershipID, err := s.intakeDealership(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := obscontext.WithDealershipID(c.Request.Context(), dealershipID.String())
	created, err := s.leadSvc.Intake(ctx, dealershipID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(ctx).Info("lead received from webhook",
		zap.String("lead_id", created.ID.String()),
		zap.String("source", created.Source),
	)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "id": created.ID})
}

func (s *Server) intakeDealership(c *gin.Context) (snowflake.ID, error) {
	if raw := intakeKey(c); raw != "" {
		dealershipID, err := s.intakeKeySvc.Resolve(c.Request.Context(), raw)
		if err != nil {
			return 0, err
		}
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actorTypeIntake, ""))
		return dealershipID, nil
	}

	if !s.cfg.Webhook.AllowDefaultDealership {
		return 0, ErrUnauthorized
	}

	c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actorTypeAnonymous, ""))
	dealership, err := s.dealershipSvc.IntakeDealership(c.Request.Context(), snowflake.ID(s.cfg.Webhook.DefaultDealershipID))
	if err != nil {
		return 0, err
	}
	return dealership.ID, nil
}

func intakeKey(c *gin.Context) string {
	if raw := strings.TrimSpace(c.GetHeader(HeaderIntakeKey)); raw != "" {
		return raw
	}
	return bearerToken(c)
}

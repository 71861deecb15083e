package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dealflow/internal/auth/token"
	obscontext "github.com/smallbiznis/dealflow/internal/observability/context"
	"github.com/smallbiznis/dealflow/internal/principal"
)

const (
	HeaderIntakeKey    = "X-Intake-Key"
	contextUserIDKey   = "user_id"
	tokenQueryParam    = "token"
	actorTypeUser      = "user"
	actorTypeIntake    = "intake_key"
	actorTypeAnonymous = "anonymous"
)

// AuthRequired verifies the bearer token and stores the principal on the
// request context. There is no database round trip.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.authsvc.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		withPrincipal(c, p)
		c.Next()
	}
}

func withPrincipal(c *gin.Context, p principal.Principal) {
	ctx := principal.WithPrincipal(c.Request.Context(), p)
	ctx = obscontext.WithActor(ctx, actorTypeUser, p.UserID.String())
	if id, ok := p.Dealership(); ok {
		ctx = obscontext.WithDealershipID(ctx, id.String())
	}
	c.Request = c.Request.WithContext(ctx)
	c.Set(contextUserIDKey, p.UserID.String())
}

func bearerToken(c *gin.Context) string {
	return token.FromHeader(c.GetHeader("Authorization"))
}

// realtimeToken accepts the token from the query string, since browsers
// cannot set headers on a WebSocket handshake, or from the header.
func realtimeToken(c *gin.Context) string {
	if raw := strings.TrimSpace(c.Query(tokenQueryParam)); raw != "" {
		return raw
	}
	return bearerToken(c)
}

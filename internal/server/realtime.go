package server

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
	"github.com/smallbiznis/dealflow/internal/observability/logger"
	"github.com/smallbiznis/dealflow/internal/realtime"
	"go.uber.org/zap"
)

const realtimeInboundBuffer = 16

// sendMessagePayload is the send-message frame. Any userId sent by the
// client is ignored; the sender is always the authenticated principal.
type sendMessagePayload struct {
	LeadID   string   `json:"leadId"`
	Type     string   `json:"type"`
	Subject  *string  `json:"subject"`
	Content  string   `json:"content"`
	Mentions []string `json:"mentions"`
}

// ServeRealtime upgrades to a WebSocket after verifying the token. One
// goroutine reads frames; the handler loop owns every write.
func (s *Server) ServeRealtime(c *gin.Context) {
	p, err := s.authsvc.Authenticate(c.Request.Context(), realtimeToken(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	withPrincipal(c, p)

	opts := &websocket.AcceptOptions{}
	if origins := s.cfg.Realtime.AllowedOrigins; len(origins) > 0 {
		opts.OriginPatterns = origins
	}
	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("realtime upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := s.hub.Connect()
	defer s.hub.Disconnect(sub)

	s.obsMetrics.RealtimeConnected(ctx, 1)
	defer s.obsMetrics.RealtimeConnected(context.Background(), -1)

	session := &realtimeSession{
		server:    s,
		conn:      conn,
		sub:       sub,
		expiresAt: p.ExpiresAt,
		log:       logger.FromContext(ctx).With(zap.String("user_id", p.UserID.String())),
	}
	session.run(ctx)
}

type realtimeSession struct {
	server    *Server
	conn      *websocket.Conn
	sub       *realtime.Conn
	expiresAt time.Time
	log       *zap.Logger
}

func (rs *realtimeSession) run(ctx context.Context) {
	frames := make(chan []byte, realtimeInboundBuffer)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := rs.conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	// the socket may not outlive the token it was opened with
	var expired <-chan time.Time
	if !rs.expiresAt.IsZero() {
		timer := time.NewTimer(time.Until(rs.expiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = rs.conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = rs.conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case data := <-frames:
			if reply, ok := rs.handle(ctx, data); ok {
				if err := rs.write(ctx, reply); err != nil {
					_ = rs.conn.Close(websocket.StatusNormalClosure, "write_failed")
					return
				}
			}
		case <-expired:
			rs.log.Debug("realtime token expired")
			_ = rs.conn.Close(websocket.StatusPolicyViolation, "token expired")
			return
		case <-rs.sub.Done():
			_ = rs.conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		case evt := <-rs.sub.Events():
			if err := rs.write(ctx, evt); err != nil {
				_ = rs.conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func (rs *realtimeSession) write(ctx context.Context, evt realtime.Event) error {
	timeout := rs.server.messagingCfg.Get().BroadcastWriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return wsjson.Write(writeCtx, rs.conn, evt)
}

// handle processes one client frame and returns the direct reply, if any.
// A new message is not echoed here; it reaches the sender through the room.
func (rs *realtimeSession) handle(ctx context.Context, data []byte) (realtime.Event, bool) {
	var frame realtime.Inbound
	if err := json.Unmarshal(data, &frame); err != nil || strings.TrimSpace(frame.Name) == "" {
		return realtime.NewError("", "invalid_request", "malformed event"), true
	}

	switch frame.Name {
	case realtime.EventJoinLead:
		return rs.joinLead(ctx, frame.Data), true
	case realtime.EventLeaveLead:
		return rs.leaveLead(frame.Data), true
	case realtime.EventSendMessage:
		return rs.sendMessage(ctx, frame.Data)
	default:
		return realtime.NewError(frame.Name, "unknown_event", "unknown event"), true
	}
}

func (rs *realtimeSession) joinLead(ctx context.Context, data json.RawMessage) realtime.Event {
	var ref realtime.LeadRef
	if err := json.Unmarshal(data, &ref); err != nil || strings.TrimSpace(ref.LeadID) == "" {
		return realtime.NewError(realtime.EventJoinLead, "invalid_request", "leadId is required")
	}

	lead, err := rs.server.leadSvc.Get(ctx, strings.TrimSpace(ref.LeadID))
	if err != nil {
		return rs.fail(realtime.EventJoinLead, err)
	}

	rs.server.hub.Join(lead.ID, rs.sub)
	rs.log.Debug("joined lead room", zap.String("lead_id", lead.ID.String()))
	return realtime.Event{Name: realtime.EventJoinedLead, Data: realtime.LeadRef{LeadID: lead.ID.String()}}
}

func (rs *realtimeSession) leaveLead(data json.RawMessage) realtime.Event {
	var ref realtime.LeadRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return realtime.NewError(realtime.EventLeaveLead, "invalid_request", "leadId is required")
	}
	leadID, err := snowflake.ParseString(strings.TrimSpace(ref.LeadID))
	if err != nil || leadID == 0 {
		return realtime.NewError(realtime.EventLeaveLead, "invalid_request", "leadId is required")
	}

	rs.server.hub.Leave(leadID, rs.sub)
	return realtime.Event{Name: realtime.EventLeftLead, Data: realtime.LeadRef{LeadID: leadID.String()}}
}

func (rs *realtimeSession) sendMessage(ctx context.Context, data json.RawMessage) (realtime.Event, bool) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return realtime.NewError(realtime.EventSendMessage, "invalid_request", "malformed message"), true
	}
	if strings.TrimSpace(payload.LeadID) == "" || strings.TrimSpace(payload.Content) == "" {
		return realtime.NewError(realtime.EventSendMessage, "invalid_request", "leadId and content are required"), true
	}

	_, err := rs.server.messagingSvc.PostMessage(ctx, messagingdomain.PostMessageRequest{
		LeadID:   strings.TrimSpace(payload.LeadID),
		Type:     payload.Type,
		Subject:  payload.Subject,
		Content:  payload.Content,
		Mentions: payload.Mentions,
	})
	if err != nil {
		return rs.fail(realtime.EventSendMessage, err), true
	}
	return realtime.Event{}, false
}

// fail converts err into an error event. Internal failures are logged and
// reported without detail.
func (rs *realtimeSession) fail(event string, err error) realtime.Event {
	errorType, code := classifyErrorForLog(err)
	if errorType == "internal_error" {
		rs.log.Error("realtime event failed", zap.String("event", event), zap.Error(err))
	}
	return realtime.NewError(event, code, strings.ReplaceAll(errorType, "_", " "))
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/smallbiznis/dealflow/internal/audit"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	"github.com/smallbiznis/dealflow/internal/auth"
	authdomain "github.com/smallbiznis/dealflow/internal/auth/domain"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/config"
	"github.com/smallbiznis/dealflow/internal/dealership"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	"github.com/smallbiznis/dealflow/internal/intakekey"
	intakekeydomain "github.com/smallbiznis/dealflow/internal/intakekey/domain"
	"github.com/smallbiznis/dealflow/internal/lead"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/messaging"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
	"github.com/smallbiznis/dealflow/internal/notification"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	"github.com/smallbiznis/dealflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/dealflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dealflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/dealflow/internal/observability/tracing"
	"github.com/smallbiznis/dealflow/internal/ratelimit"
	"github.com/smallbiznis/dealflow/internal/realtime"
	"github.com/smallbiznis/dealflow/internal/stats"
	statsdomain "github.com/smallbiznis/dealflow/internal/stats/domain"
	"github.com/smallbiznis/dealflow/internal/task"
	taskdomain "github.com/smallbiznis/dealflow/internal/task/domain"
	"github.com/smallbiznis/dealflow/internal/user"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownGracePeriod = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	dealership.Module,
	user.Module,
	lead.Module,
	notification.Module,
	realtime.Module,
	messaging.Module,
	task.Module,
	stats.Module,
	intakekey.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

// corsHandler opens the API to the configured browser origins. Bearer
// tokens travel in headers so credentials are not allowed.
func corsHandler(cfg config.Config, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", HeaderIntakeKey, "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         600,
	}).Handler(next)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsHandler(cfg, s.Engine()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	dealershipSvc   dealershipdomain.Service
	userSvc         userdomain.Service
	leadSvc         leaddomain.Service
	messagingSvc    messagingdomain.Service
	notificationSvc notificationdomain.Service
	taskSvc         taskdomain.Service
	statsSvc        statsdomain.Service
	intakeKeySvc    intakekeydomain.Service
	hub             *realtime.Hub
	limiter         *ratelimit.Limiter
	obsMetrics      *obsmetrics.Metrics
	messagingCfg    *config.MessagingConfigHolder
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	DealershipSvc   dealershipdomain.Service
	UserSvc         userdomain.Service
	LeadSvc         leaddomain.Service
	MessagingSvc    messagingdomain.Service
	NotificationSvc notificationdomain.Service
	TaskSvc         taskdomain.Service
	StatsSvc        statsdomain.Service
	IntakeKeySvc    intakekeydomain.Service
	Hub             *realtime.Hub
	Limiter         *ratelimit.Limiter            `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics           `optional:"true"`
	MessagingCfg    *config.MessagingConfigHolder `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		dealershipSvc:   p.DealershipSvc,
		userSvc:         p.UserSvc,
		leadSvc:         p.LeadSvc,
		messagingSvc:    p.MessagingSvc,
		notificationSvc: p.NotificationSvc,
		taskSvc:         p.TaskSvc,
		statsSvc:        p.StatsSvc,
		intakeKeySvc:    p.IntakeKeySvc,
		hub:             p.Hub,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
		messagingCfg:    p.MessagingCfg,
	}
	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerRealtimeRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	s.engine.POST("/auth/login", s.LoginRateLimit(), s.Login)
	s.engine.POST("/api/auth/login", s.LoginRateLimit(), s.Login)
	s.engine.GET("/auth/me", s.AuthRequired(), s.Me)
	s.engine.GET("/api/auth/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Tenant directory --------
	api.GET("/dealerships", s.ListDealerships)
	api.POST("/dealerships", s.CreateDealership)
	api.PUT("/dealerships/:id", s.UpdateDealership)
	api.DELETE("/dealerships/:id", s.DeleteDealership)

	api.GET("/locations", s.ListLocations)
	api.POST("/locations", s.CreateLocation)
	api.PUT("/locations/:id", s.UpdateLocation)
	api.DELETE("/locations/:id", s.DeleteLocation)

	api.GET("/roles", s.ListRoles)

	// -------- Users --------
	api.GET("/users", s.ListUsers)
	api.POST("/users", s.CreateUser)
	api.PUT("/users/:id", s.UpdateUser)
	api.DELETE("/users/:id", s.DeleteUser)

	// -------- Leads --------
	api.GET("/leads", s.ListLeads)
	api.POST("/leads", s.CreateLead)
	api.GET("/leads/:id", s.GetLead)
	api.PUT("/leads/:id", s.UpdateLead)
	api.PATCH("/leads/:id/status", s.UpdateLeadStatus)
	api.GET("/leads/:id/communications", s.ListLeadCommunications)
	api.POST("/leads/:id/communications", s.PostLeadCommunication)

	// -------- Messaging --------
	api.GET("/messages", s.ListMessages)
	api.POST("/messages/inbound", s.PostInboundMessage)

	api.GET("/notifications", s.ListNotifications)
	api.PUT("/notifications/read", s.MarkAllNotificationsRead)
	api.PUT("/notifications/:id/read", s.MarkNotificationRead)
	api.DELETE("/notifications", s.ClearNotifications)

	// -------- Tasks & stats --------
	api.GET("/tasks", s.ListTasks)
	api.POST("/tasks", s.CreateTask)
	api.PATCH("/tasks/:id/status", s.UpdateTaskStatus)

	api.GET("/stats", s.GetStats)

	// -------- Admin --------
	api.GET("/intake-keys", s.ListIntakeKeys)
	api.POST("/intake-keys", s.CreateIntakeKey)
	api.POST("/intake-keys/:id/revoke", s.RevokeIntakeKey)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/api/webhooks/leads", s.WebhookRateLimit(), s.IngestLead)
}

func (s *Server) registerRealtimeRoutes() {
	s.engine.GET("/ws", s.ServeRealtime)
}

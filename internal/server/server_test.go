package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	auditrepo "github.com/smallbiznis/dealflow/internal/audit/repository"
	auditservice "github.com/smallbiznis/dealflow/internal/audit/service"
	authservice "github.com/smallbiznis/dealflow/internal/auth/service"
	"github.com/smallbiznis/dealflow/internal/auth/token"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/config"
	dealershiprepo "github.com/smallbiznis/dealflow/internal/dealership/repository"
	dealershipservice "github.com/smallbiznis/dealflow/internal/dealership/service"
	intakekeyrepo "github.com/smallbiznis/dealflow/internal/intakekey/repository"
	intakekeyservice "github.com/smallbiznis/dealflow/internal/intakekey/service"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	leadrepo "github.com/smallbiznis/dealflow/internal/lead/repository"
	leadservice "github.com/smallbiznis/dealflow/internal/lead/service"
	messagingrepo "github.com/smallbiznis/dealflow/internal/messaging/repository"
	messagingservice "github.com/smallbiznis/dealflow/internal/messaging/service"
	"github.com/smallbiznis/dealflow/internal/migration"
	notificationrepo "github.com/smallbiznis/dealflow/internal/notification/repository"
	notificationservice "github.com/smallbiznis/dealflow/internal/notification/service"
	"github.com/smallbiznis/dealflow/internal/observability"
	obsmetrics "github.com/smallbiznis/dealflow/internal/observability/metrics"
	"github.com/smallbiznis/dealflow/internal/ratelimit"
	"github.com/smallbiznis/dealflow/internal/realtime"
	"github.com/smallbiznis/dealflow/internal/seed"
	statsrepo "github.com/smallbiznis/dealflow/internal/stats/repository"
	statsservice "github.com/smallbiznis/dealflow/internal/stats/service"
	taskrepo "github.com/smallbiznis/dealflow/internal/task/repository"
	taskservice "github.com/smallbiznis/dealflow/internal/task/service"
	userrepo "github.com/smallbiznis/dealflow/internal/user/repository"
	userservice "github.com/smallbiznis/dealflow/internal/user/service"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testPrincipalEmail    = "principal@dealflow.com"
	testPrincipalPassword = "principal123"
	testSuperEmail        = "super@dealflow.com"
	testSuperPassword     = "superadmin123"
)

type testEnv struct {
	server *Server
	db     *gorm.DB
	node   *snowflake.Node
	hub    *realtime.Hub
}

type envOption func(*config.Config)

func withoutDefaultDealership() envOption {
	return func(cfg *config.Config) {
		cfg.Webhook.AllowDefaultDealership = false
	}
}

func withTokenTTL(ttl time.Duration) envOption {
	return func(cfg *config.Config) {
		cfg.AuthTokenTTL = ttl
	}
}

func withRateLimit(burst int) envOption {
	return func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{
			Enabled:      true,
			LoginRate:    0.001,
			LoginBurst:   burst,
			WebhookRate:  0.001,
			WebhookBurst: burst,
		}
	}
}

// newTestEnv wires the real services over a seeded in-memory database.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		HTTPAddr: ":0",
		Webhook:  config.WebhookConfig{AllowDefaultDealership: true},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.System()
	log := zap.NewNop()
	require.NoError(t, seed.New(conn, node, clk, log).Run(context.Background()))

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, AuditSvc: auditSvc})

	users := userrepo.Provide()
	dealerships := dealershiprepo.Provide()
	leads := leadrepo.Provide()
	notifications := notificationrepo.Provide()
	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	limiter, err := ratelimit.NewLimiter(cfg, nil, log)
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin: NewEngine(observability.Config{}, obsmetrics.NewHTTPMetricsWithRegisterer(prometheus.NewRegistry())),
		Cfg: cfg,
		Log: log,
		Authsvc: authservice.New(authservice.Params{
			DB:       conn,
			Log:      log,
			Clock:    clk,
			Tokens:   token.NewHMAC([]byte("test-secret"), cfg.AuthTokenTTL, clk),
			UserRepo: users,
			AuditSvc: auditSvc,
		}),
		AuthzSvc: authz,
		AuditSvc: auditSvc,
		DealershipSvc: dealershipservice.New(dealershipservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk,
			Repo: dealerships, UserRepo: users, Authz: authz, AuditSvc: auditSvc,
		}),
		UserSvc: userservice.New(userservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk,
			Repo: users, DealershipRepo: dealerships, Authz: authz, AuditSvc: auditSvc,
		}),
		LeadSvc: leadservice.New(leadservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk,
			Repo: leads, DealershipRepo: dealerships, UserRepo: users,
			NotificationRepo: notifications, Authz: authz,
		}),
		MessagingSvc: messagingservice.New(messagingservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk,
			Repo: messagingrepo.Provide(), LeadRepo: leads, UserRepo: users,
			NotificationRepo: notifications, Authz: authz, Publisher: hub,
		}),
		NotificationSvc: notificationservice.New(notificationservice.Params{
			DB: conn, Log: log, Repo: notifications, Authz: authz,
		}),
		TaskSvc: taskservice.New(taskservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk,
			Repo: taskrepo.Provide(), LeadRepo: leads, Authz: authz,
		}),
		StatsSvc: statsservice.New(statsservice.Params{
			DB: conn, Log: log, Repo: statsrepo.Provide(), Authz: authz,
		}),
		IntakeKeySvc: intakekeyservice.New(intakekeyservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk,
			Repo: intakekeyrepo.Provide(), DealershipRepo: dealerships, Authz: authz, AuditSvc: auditSvc,
		}),
		Hub:     hub,
		Limiter: limiter,
	})

	return &testEnv{server: srv, db: conn, node: node, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWithHeaders(t, method, path, bearer, body, nil)
}

func (e *testEnv) doWithHeaders(t *testing.T, method, path, bearer string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// seededLeads returns the demo leads ordered oldest first.
func (e *testEnv) seededLeads(t *testing.T) []leaddomain.Lead {
	t.Helper()
	var leads []leaddomain.Lead
	require.NoError(t, e.db.Order("created_at ASC, id ASC").Find(&leads).Error)
	require.NotEmpty(t, leads)
	return leads
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Errors  []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"errors"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Data
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

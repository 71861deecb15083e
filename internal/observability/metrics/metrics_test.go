package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("dealership_id", "123"),
		attribute.String("lead_id", "456"),
		attribute.String("type", "note"),
		attribute.String("direction", "internal"),
	)
	if assert.Len(t, attrs, 2) {
		assert.Equal(t, attribute.Key("type"), attrs[0].Key)
		assert.Equal(t, attribute.Key("direction"), attrs[1].Key)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMessagePosted(t.Context(), "note", "internal")
		m.RecordNotifications(t.Context(), "mention", 2)
		m.RealtimeConnected(t.Context(), 1)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordLeadCreated(t.Context(), "webhook")
	m.RecordAuthzDenied(t.Context(), "lead")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWithRegisterer(reg)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/leads", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/leads", "200")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inflight))

	again := NewHTTPMetricsWithRegisterer(reg)
	assert.Same(t, m.requests, again.requests)
}

package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	messagesPosted       metric.Int64Counter
	notificationsCreated metric.Int64Counter
	leadsCreated         metric.Int64Counter
	authzDenied          metric.Int64Counter
	realtimeConnections  metric.Int64UpDownCounter
	rateLimitDenied      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "dealflow"
	}
	meter := provider.Meter(name)

	messagesPosted, err := meter.Int64Counter("dealflow_messages_posted_total")
	if err != nil {
		return nil, err
	}
	notificationsCreated, err := meter.Int64Counter("dealflow_notifications_created_total")
	if err != nil {
		return nil, err
	}
	leadsCreated, err := meter.Int64Counter("dealflow_leads_created_total")
	if err != nil {
		return nil, err
	}
	authzDenied, err := meter.Int64Counter("dealflow_authz_denied_total")
	if err != nil {
		return nil, err
	}
	realtimeConnections, err := meter.Int64UpDownCounter("dealflow_realtime_connections")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("dealflow_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		messagesPosted:       messagesPosted,
		notificationsCreated: notificationsCreated,
		leadsCreated:         leadsCreated,
		authzDenied:          authzDenied,
		realtimeConnections:  realtimeConnections,
		rateLimitDenied:      rateLimitDenied,
	}, nil
}

// RecordMessagePosted counts a stored communication.
func (m *Metrics) RecordMessagePosted(ctx context.Context, msgType, direction string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type", strings.TrimSpace(msgType)),
		attribute.String("direction", strings.TrimSpace(direction)),
	)
	m.messagesPosted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotifications counts notifications created in one write.
func (m *Metrics) RecordNotifications(ctx context.Context, notificationType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("type", strings.TrimSpace(notificationType)))
	m.notificationsCreated.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordLeadCreated(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.leadsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAuthzDenied(ctx context.Context, object string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("object", strings.TrimSpace(object)))
	m.authzDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RealtimeConnected adjusts the live socket gauge by delta.
func (m *Metrics) RealtimeConnected(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.realtimeConnections.Add(ctx, delta)
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"type":        {},
	"direction":   {},
	"source":      {},
	"object":      {},
	"endpoint":    {},
	"reason":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Tenant and lead identifiers are never labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

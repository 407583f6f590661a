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

// Metrics exposes document-level instruments.
type Metrics struct {
	documentWrites    metric.Int64Counter
	conversions       metric.Int64Counter
	numberAllocations metric.Int64Counter
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
		log.Info("otel metrics initialized",
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
		name = "invoicer"
	}
	meter := provider.Meter(name)

	documentWrites, err := meter.Int64Counter("invoicer_document_writes_total",
		metric.WithDescription("Invoice and quotation writes by kind, operation and outcome."))
	if err != nil {
		return nil, err
	}
	conversions, err := meter.Int64Counter("invoicer_quotation_conversions_total")
	if err != nil {
		return nil, err
	}
	numberAllocations, err := meter.Int64Counter("invoicer_number_allocations_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		documentWrites:    documentWrites,
		conversions:       conversions,
		numberAllocations: numberAllocations,
	}, nil
}

// RecordDocumentWrite counts a create/update/delete of an invoice or quotation.
func (m *Metrics) RecordDocumentWrite(ctx context.Context, kind, operation string, err error) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_kind", strings.TrimSpace(kind)),
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", outcome(err)),
	)
	m.documentWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordConversion(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.conversions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome(err)))...))
}

func (m *Metrics) RecordNumberAllocation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.numberAllocations.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("document_kind", kind))...))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
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
	"document_kind": {},
	"operation":     {},
	"outcome":       {},
	"status_code":   {},
	"route":         {},
	"method":        {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
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

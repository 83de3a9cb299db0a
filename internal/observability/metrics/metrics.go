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
	readingsAdded    metric.Int64Counter
	readingsRejected metric.Int64Counter
	readingsRemoved  metric.Int64Counter
	importSkipped    metric.Int64Counter
	storeOperations  metric.Int64Counter
	storeDuration    metric.Float64Histogram
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
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
		name = "meterbook"
	}
	meter := provider.Meter(name)

	readingsAdded, err := meter.Int64Counter("meterbook_readings_added_total")
	if err != nil {
		return nil, err
	}
	readingsRejected, err := meter.Int64Counter("meterbook_readings_rejected_total")
	if err != nil {
		return nil, err
	}
	readingsRemoved, err := meter.Int64Counter("meterbook_readings_removed_total")
	if err != nil {
		return nil, err
	}
	importSkipped, err := meter.Int64Counter("meterbook_import_lines_skipped_total")
	if err != nil {
		return nil, err
	}
	storeOperations, err := meter.Int64Counter("meterbook_store_operations_total")
	if err != nil {
		return nil, err
	}
	storeDuration, err := meter.Float64Histogram("meterbook_store_operation_duration_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		readingsAdded:    readingsAdded,
		readingsRejected: readingsRejected,
		readingsRemoved:  readingsRemoved,
		importSkipped:    importSkipped,
		storeOperations:  storeOperations,
		storeDuration:    storeDuration,
	}, nil
}

// RecordReadingAdded counts a persisted reading.
func (m *Metrics) RecordReadingAdded(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.readingsAdded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReadingRejected counts an entry refused by validation.
func (m *Metrics) RecordReadingRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.readingsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordReadingRemoved(ctx context.Context) {
	if m == nil {
		return
	}
	m.readingsRemoved.Add(ctx, 1)
}

func (m *Metrics) RecordImportSkipped(ctx context.Context, lines int) {
	if m == nil || lines <= 0 {
		return
	}
	m.importSkipped.Add(ctx, int64(lines))
}

// RecordStoreOperation tracks a record store call and its latency.
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, backend string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("backend", strings.TrimSpace(backend)),
		attribute.String("outcome", outcome),
	)
	m.storeOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.storeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"operation":   {},
	"backend":     {},
	"outcome":     {},
	"source":      {},
	"reason":      {},
	"route":       {},
	"status_code": {},
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

package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"resume-analyzer-go/internal/config"
)

// Provider 封装TracerProvider的生命周期
type Provider struct {
	tp   *sdktrace.TracerProvider
	conn *grpc.ClientConn
}

// NewProvider 初始化OTLP gRPC导出器和全局TracerProvider。
// cfg.Tracing.Enabled为false时返回nil，调用方按未启用处理
func NewProvider(ctx context.Context, cfg *config.Config) (*Provider, error) {
	if cfg == nil || !cfg.Tracing.Enabled {
		return nil, nil
	}

	endpoint := cfg.Tracing.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = "resume-analyzer"
	}
	sampleRatio := cfg.Tracing.SampleRatio
	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(dialCtx, endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("连接OTLP采集端点失败: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("创建OTLP trace导出器失败: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, conn: conn}, nil
}

// Shutdown 刷出未导出的span并关闭底层连接
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	shutdownErr := p.tp.Shutdown(ctx)
	if closeErr := p.conn.Close(); closeErr != nil && shutdownErr == nil {
		shutdownErr = closeErr
	}
	return shutdownErr
}

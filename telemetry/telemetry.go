package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/colorfulnotion/evmbridge"

// Span names for bridge operations and provider calls
//
// Provider spans are named after the ledger RPC method they issue.
const (
	// Address mapping
	Span_ToNative  = "bridge.to_native"
	Span_ToForeign = "bridge.to_foreign"

	// Call codec
	Span_GetCode  = "bridge.get_code"
	Span_CallView = "bridge.call_view"

	// Transactions, receipts, blocks
	Span_SendRawTransaction = "bridge.send_raw_transaction"
	Span_TransactionByHash  = "bridge.transaction_by_hash"
	Span_Receipt            = "bridge.transaction_receipt"
	Span_Block              = "bridge.block"

	// Oracle
	Span_Balance       = "bridge.balance"
	Span_TokenBalances = "bridge.token_balances"

	// Server
	Span_RPCRequest = "rpc.request"
)

// Attribute keys
const (
	AttrAddress = attribute.Key("bridge.address")
	AttrBlock   = attribute.Key("bridge.block")
	AttrTxHash  = attribute.Key("bridge.tx_hash")
	AttrMethod  = attribute.Key("rpc.method")
	AttrItems   = attribute.Key("bridge.items")
)

// TelemetryClient owns the tracer provider spans are exported through.
type TelemetryClient struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	disabled bool // if true, spans are no-ops
}

// NewNoOpTelemetryClient creates a disabled client that records nothing.
func NewNoOpTelemetryClient() *TelemetryClient {
	return &TelemetryClient{
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
		disabled: true,
	}
}

// NewTelemetryClient exports spans over OTLP/HTTP to endpoint, a full URL
// such as http://localhost:4318.
func NewTelemetryClient(ctx context.Context, endpoint, serviceName string) (*TelemetryClient, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", endpoint, err)
	}
	return newClient(serviceName, sdktrace.WithBatcher(exporter)), nil
}

// NewTelemetryClientWithProcessor routes spans to sp. Used by tests with a
// tracetest.SpanRecorder.
func NewTelemetryClientWithProcessor(serviceName string, sp sdktrace.SpanProcessor) *TelemetryClient {
	return newClient(serviceName, sdktrace.WithSpanProcessor(sp))
}

func newClient(serviceName string, opt sdktrace.TracerProviderOption) *TelemetryClient {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(opt, sdktrace.WithResource(res))
	return &TelemetryClient{
		provider: tp,
		tracer:   tp.Tracer(instrumentationName),
	}
}

func (c *TelemetryClient) Disabled() bool {
	return c.disabled
}

// Start opens a span named op as a child of any span in ctx.
func (c *TelemetryClient) Start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans. It is a no-op for a disabled client.
func (c *TelemetryClient) Shutdown(ctx context.Context) error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

var defaultClient atomic.Pointer[TelemetryClient]

func init() {
	defaultClient.Store(NewNoOpTelemetryClient())
}

// SetDefault installs c as the process wide client.
func SetDefault(c *TelemetryClient) {
	if c == nil {
		c = NewNoOpTelemetryClient()
	}
	defaultClient.Store(c)
}

func Default() *TelemetryClient {
	return defaultClient.Load()
}

// StartSpan starts a span on the default client.
func StartSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Default().Start(ctx, op, attrs...)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Package telemetry wires structured logging, tracing, and metrics:
// go.uber.org/zap for logs (JSON to a debug file under DEBUG=1),
// go.opentelemetry.io/otel for a tracer (an SDK provider with no exporter
// under DEBUG=1, the global no-op provider otherwise; the orchestrator
// and mediator open no spans with it), and
// github.com/prometheus/client_golang for counters/histograms in an
// isolated registry, which the /stats slash command does not read.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry bundles the logger, tracer, and metrics registry
// constructed once at process startup.
type Telemetry struct {
	Logger   *zap.SugaredLogger
	Tracer   oteltrace.Tracer
	Metrics  *Metrics
	provider *tracesdk.TracerProvider
}

// New constructs Telemetry. When debug is false, logging is a no-op
// core and the tracer provider is the global default no-op — the
// ambient stack is always wired, but only observable under DEBUG=1 per
// the ambient stack.
func New(configDir string, debug bool) (*Telemetry, error) {
	logger, err := newLogger(configDir, debug)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build logger: %w", err)
	}

	var provider *tracesdk.TracerProvider
	var tracer oteltrace.Tracer
	if debug {
		provider = tracesdk.NewTracerProvider()
		otel.SetTracerProvider(provider)
	}
	tracer = otel.Tracer("bailu")

	return &Telemetry{
		Logger:   logger.Sugar(),
		Tracer:   tracer,
		Metrics:  NewMetrics(),
		provider: provider,
	}, nil
}

// Shutdown flushes the logger and, if one was started, the tracer
// provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			return err
		}
	}
	_ = t.Logger.Sync()
	return nil
}

func newLogger(configDir string, debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(configDir, "debug.log"), "stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	return cfg.Build()
}

// Metrics holds the counters and histograms of the isolated registry.
// The REPL adds each run's iteration count to IterationsTotal; the
// orchestrator and mediator do not update these metrics.
type Metrics struct {
	Registry             *prometheus.Registry
	IterationsTotal      prometheus.Counter
	ToolCallsTotal       *prometheus.CounterVec
	ToolCallDuration     *prometheus.HistogramVec
	ConversationTokens   prometheus.Gauge
	CompactionsTotal     prometheus.Counter
}

// NewMetrics constructs a fresh, isolated registry (never the global
// default) so tests and multiple in-process sessions don't collide on
// metric registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bailu_orchestrator_iterations_total",
			Help: "Total orchestrator iterations run across all turns.",
		}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bailu_tool_calls_total",
			Help: "Total tool calls dispatched, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bailu_tool_call_duration_seconds",
			Help:    "Tool call dispatch latency, by tool name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		ConversationTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bailu_conversation_estimated_tokens",
			Help: "Current conversation token estimate.",
		}),
		CompactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bailu_conversation_compactions_total",
			Help: "Total conversation compactions performed (auto + manual).",
		}),
	}

	reg.MustRegister(m.IterationsTotal, m.ToolCallsTotal, m.ToolCallDuration, m.ConversationTokens, m.CompactionsTotal)
	return m
}

// RecordToolCall updates the tool-call counters and latency histogram
// for one dispatched call.
func (m *Metrics) RecordToolCall(tool string, success bool, d time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// Snapshot is a point-in-time rendering of the metrics a /stats
// slash command would display.
type Snapshot struct {
	Iterations         int
	ConversationTokens int
	Compactions        int
}

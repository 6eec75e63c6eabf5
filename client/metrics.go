package client

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const callSpanName = "taskflow.remote_call"

// callMetrics records one remote API round trip as an otel span plus a
// structured log line, mirroring the per-stage error attribution used on
// the serving side.
type callMetrics struct {
	logger     *log.Logger
	span       trace.Span
	start      time.Time
	method     string
	route      string
	errorStage string
}

func startCallMetrics(ctx context.Context, logger *log.Logger, method, route string) (*callMetrics, context.Context) {
	tracer := otel.GetTracerProvider().Tracer("taskflow-sync/client")
	ctx, span := tracer.Start(ctx, callSpanName, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		))
	return &callMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		method: method,
		route:  route,
	}, ctx
}

func (m *callMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// End closes the span and emits the call log line. status is zero when no
// HTTP response was received.
func (m *callMetrics) End(status int, err error) {
	if m == nil {
		return
	}
	elapsed := time.Since(m.start)

	fields := log.Fields{
		"method":   m.method,
		"route":    m.route,
		"status":   status,
		"total_ms": float64(elapsed.Microseconds()) / 1000.0,
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		if status > 0 {
			m.span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("taskflow.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry.Warn("remote call failed")
		return
	}
	entry.Debug("remote call")
}

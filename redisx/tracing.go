package redisx

import (
	"context"
	"errors"
	"net"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys, following the OpenTelemetry database semantic
// conventions.
const (
	attrDBSystem    = "db.system"
	attrDBOperation = "db.operation"
	attrPipelineLen = "db.redis.pipeline_length"
)

const tracerName = "github.com/parmenashp/felpsbot-shared-libs/redisx"

// TracingHook opens an OpenTelemetry client span around every command and
// pipeline flush. With no tracer provider configured the spans are no-ops.
type TracingHook struct {
	tracer trace.Tracer
}

// NewTracingHook creates the tracing hook using the global tracer provider.
func NewTracingHook() *TracingHook {
	return &TracingHook{tracer: otel.Tracer(tracerName)}
}

// DialHook passes dials through untouched.
func (h *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook traces a single command.
func (h *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String(attrDBSystem, "redis"),
				attribute.String(attrDBOperation, cmd.Name()),
			),
		)
		defer span.End()

		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// ProcessPipelineHook traces a pipeline flush as a single span.
func (h *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String(attrDBSystem, "redis"),
				attribute.Int(attrPipelineLen, len(cmds)),
			),
		)
		defer span.End()

		err := next(ctx, cmds)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			requestID: "test-id-123",
			want:      "test-id-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			requestID: "req-456",
			want:      "req-456",
		},
		{
			name:      "empty request ID",
			ctx:       context.Background(),
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			got := RequestIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextWithCommandID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		commandID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			commandID: "cmd-123",
			want:      "cmd-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			commandID: "cmd-456",
			want:      "cmd-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithCommandID(tt.ctx, tt.commandID)
			got := CommandIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("CommandIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "nil context",
			ctx:  nil,
			want: "",
		},
		{
			name: "context without request ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "context with wrong type",
			ctx:  context.WithValue(context.Background(), requestIDKey, 123),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewCorrelationID(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty correlation IDs")
	}
	if a == b {
		t.Error("expected unique correlation IDs")
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithCorrelationID(ctx, "corr-789")
	ctx = ContextWithCommandID(ctx, "cmd-456")

	enriched := WithContext(ctx, logger)
	enriched.Info().Msg("enriched")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry[FieldRequestID] != "req-123" {
		t.Errorf("expected request_id req-123, got %v", entry[FieldRequestID])
	}
	if entry[FieldCorrelationID] != "corr-789" {
		t.Errorf("expected correlation_id corr-789, got %v", entry[FieldCorrelationID])
	}
	if entry[FieldCommandID] != "cmd-456" {
		t.Errorf("expected command_id cmd-456, got %v", entry[FieldCommandID])
	}
}

func TestWithContextEmpty(t *testing.T) {
	logger := WithComponent("test")

	// Empty context should return the original logger untouched.
	got := WithContext(context.Background(), logger)
	if got.GetLevel() != logger.GetLevel() {
		t.Error("logger level should be preserved")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	logger := WithComponentFromContext(context.Background(), "test-component")
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger from WithComponentFromContext")
	}
}

func TestBase(t *testing.T) {
	baseLogger := Base()
	if baseLogger.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid base logger with reasonable log level")
	}
}

func TestDerive(t *testing.T) {
	logger1 := Derive(nil)
	if logger1.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger from Derive with nil builder")
	}

	logger2 := Derive(func(ctx *zerolog.Context) {
		ctx.Str("custom_field", "test_value")
	})
	if logger2.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger from Derive with custom builder")
	}
}

func TestWithTraceContext(t *testing.T) {
	// Without a span the base logger comes back without trace fields.
	logger1 := WithTraceContext(context.Background())
	if logger1.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger without trace")
	}

	t.Run("WithValidSpan", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})

		ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

		var buf bytes.Buffer
		Configure(Config{})
		saved := base
		base = zerolog.New(&buf)
		defer func() { base = saved }()

		traced := WithTraceContext(ctx)
		traced.Info().Msg("test with trace")

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("failed to parse log output: %v", err)
		}
		if id, ok := entry[FieldTraceID].(string); !ok || id != traceID.String() {
			t.Errorf("expected trace_id %s, got %v", traceID, entry[FieldTraceID])
		}
		if id, ok := entry[FieldSpanID].(string); !ok || id != spanID.String() {
			t.Errorf("expected span_id %s, got %v", spanID, entry[FieldSpanID])
		}
	})
}

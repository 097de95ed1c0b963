package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldCommandID     = "command_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Redis fields
	FieldRedisAddr = "addr"
	FieldRedisDB   = "db"
	FieldRedisCmd  = "cmd"
)

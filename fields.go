package tracelogging

// Wire names shared by both backends. These match the C++ and Rust
// TraceLogging exporters so existing decoders keep working.

const (
	FieldName          = "name"
	FieldTraceID       = "TraceId"
	FieldSpanID        = "SpanId"
	FieldParentSpanID  = "ParentId"
	FieldKind          = "Kind"
	FieldStartTime     = "StartTime"
	FieldEndTime       = "EndTime"
	FieldTime          = "time"
	FieldEventTime     = "otel_event_time"
	FieldStatusCode    = "StatusCode"
	FieldStatusMessage = "StatusMessage"
	FieldLinkTraceID   = "toTraceId"
	FieldLinkSpanID    = "toSpanId"
	FieldPayload       = "Payload"

	// Nested block names for span sub-events and links. FieldLink doubles as
	// the linked-span field name in standalone link events.
	FieldEvent = "Event"
	FieldLink  = "Link"

	// EventNameSpan is the event name used for the per-span event on backends
	// whose event name is fixed (ETW); on user_events the span name itself is
	// the event name.
	EventNameSpan = "Span"
)

// Event and field tags marking which timestamp is meaningful. A TraceLogging
// event always carries a header timestamp set at write time; for spans
// exported after completion that timestamp is the export time, not the span
// time, so decoders must be pointed at the payload field holding the real one.
const (
	// EventTagIgnoreEventTime marks an event whose header timestamp is not the
	// event's logical time.
	EventTagIgnoreEventTime uint32 = 12345
	// FieldTagRealEventTime marks the payload field carrying the event's
	// logical time. user_events field tags are 16 bits wide, so the value is
	// truncated there.
	FieldTagRealEventTime uint32 = 98765
)

//go:build windows

package etw

import (
	"time"

	"github.com/Microsoft/go-winio/pkg/etw"
	"github.com/Microsoft/go-winio/pkg/guid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
)

// 100ns intervals between the Windows epoch (1601-01-01) and the Unix epoch.
const epochDelta = 116444736000000000

// filetime converts a [time.Time] to a FILETIME-style count of 100ns
// intervals since 1601-01-01, the timestamp representation ETW decoders
// expect.
func filetime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100 + epochDelta)
}

// activityGUID converts a span ID to the event's activity ID via
// [tracelogging.ActivityID].
func activityGUID(spanID trace.SpanID) guid.GUID {
	return guid.FromArray(tracelogging.ActivityID(spanID))
}

func idFields(traceID trace.TraceID, spanID, pSpanID trace.SpanID) []etw.FieldOpt {
	fields := make([]etw.FieldOpt, 0, 3)
	fields = append(fields,
		etw.StringField(tracelogging.FieldTraceID, traceID.String()),
		etw.StringField(tracelogging.FieldSpanID, spanID.String()),
	)
	if pSpanID.IsValid() {
		fields = append(fields, etw.StringField(tracelogging.FieldParentSpanID, pSpanID.String()))
	}
	return fields
}

func attributesToFields(attrs []attribute.KeyValue) []etw.FieldOpt {
	fields := make([]etw.FieldOpt, 0, len(attrs))

	for _, attr := range attrs {
		// AsInterface() will convert to the right field type based on OTel's
		// supported field types, and then etw.SmartField will do its own
		// type-matching
		fields = append(fields, etw.SmartField(string(attr.Key), attr.Value.AsInterface()))
	}
	return fields
}

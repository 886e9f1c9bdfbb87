//go:build linux

package userevents

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
	"github.com/Microsoft/go-otel-tracelogging/internal/eventheader"
)

// user_events event and field tags are 16 bits wide, so the shared 32 bit
// tag values are truncated on this backend.
const (
	eventTagIgnoreTime = uint16(tracelogging.EventTagIgnoreEventTime & 0xffff)
	fieldTagRealTime   = uint16(tracelogging.FieldTagRealEventTime & 0xffff)
)

// writeSpan writes the whole span as one event named after the span, with its
// sub-events and links nested as struct blocks.
func (e *exporter) writeSpan(es *eventheader.EventSet, eb *eventheader.EventBuilder, span tracesdk.ReadOnlySpan) error {
	sc := span.SpanContext()
	spanID := sc.SpanID()
	pSpanID := span.Parent().SpanID()
	status := span.Status()

	eb.Reset(span.Name(), eventTagIgnoreTime)
	eb.AddUint64(tracelogging.FieldEventTime, uint64(span.EndTime().UnixNano()),
		eventheader.FormatTime, fieldTagRealTime)

	eb.AddString(tracelogging.FieldTraceID, sc.TraceID().String(), eventheader.FormatDefault, 0)
	eb.AddString(tracelogging.FieldSpanID, spanID.String(), eventheader.FormatDefault, 0)
	if pSpanID.IsValid() {
		eb.AddString(tracelogging.FieldParentSpanID, pSpanID.String(), eventheader.FormatDefault, 0)
	}

	// coerce unspecified kinds to internal
	eb.AddString(tracelogging.FieldKind, trace.ValidateSpanKind(span.SpanKind()).String(),
		eventheader.FormatDefault, 0)

	eb.AddUint64(tracelogging.FieldStartTime, uint64(span.StartTime().UnixNano()),
		eventheader.FormatTime, 0)
	eb.AddUint64(tracelogging.FieldEndTime, uint64(span.EndTime().UnixNano()),
		eventheader.FormatTime, 0)

	// codes.Unset is the default and means the operation was not validated
	if status.Code != codes.Unset {
		eb.AddString(tracelogging.FieldStatusCode, status.Code.String(), eventheader.FormatDefault, 0)
		if status.Code == codes.Error && status.Description != "" {
			eb.AddString(tracelogging.FieldStatusMessage, status.Description, eventheader.FormatDefault, 0)
		}
	}

	if err := e.addAttributes(eb, span.Attributes()); err != nil {
		return err
	}

	for _, ev := range span.Events() {
		attrs := blockAttributes(ev.Attributes, 2)
		eb.AddStruct(tracelogging.FieldEvent, 2+len(attrs), 0)
		eb.AddString(tracelogging.FieldName, ev.Name, eventheader.FormatDefault, 0)
		eb.AddUint64(tracelogging.FieldTime, uint64(ev.Time.UnixNano()), eventheader.FormatTime, 0)
		addFields(eb, attrs)
	}

	for _, l := range span.Links() {
		attrs := blockAttributes(l.Attributes, 2)
		eb.AddStruct(tracelogging.FieldLink, 2+len(attrs), 0)
		eb.AddString(tracelogging.FieldLinkTraceID, l.SpanContext.TraceID().String(), eventheader.FormatDefault, 0)
		eb.AddString(tracelogging.FieldLinkSpanID, l.SpanContext.SpanID().String(), eventheader.FormatDefault, 0)
		addFields(eb, attrs)
	}

	activityID := tracelogging.ActivityID(spanID)
	var relatedID *[16]byte
	if pSpanID.IsValid() {
		rid := tracelogging.ActivityID(pSpanID)
		relatedID = &rid
	}
	return eb.Write(es, &activityID, relatedID)
}

// writeActivity writes the span as an activity: a start and a stop event with
// matching opcodes, with sub-events and links as standalone events in between,
// all carrying the span's activity ID.
func (e *exporter) writeActivity(es *eventheader.EventSet, eb *eventheader.EventBuilder, span tracesdk.ReadOnlySpan) error {
	sc := span.SpanContext()
	spanID := sc.SpanID()
	traceID := sc.TraceID()
	pSpanID := span.Parent().SpanID()
	status := span.Status()

	activityID := tracelogging.ActivityID(spanID)
	var relatedID *[16]byte
	if pSpanID.IsValid() {
		rid := tracelogging.ActivityID(pSpanID)
		relatedID = &rid
	}

	eb.Reset(span.Name(), eventTagIgnoreTime)
	eb.Opcode(eventheader.OpcodeActivityStart)
	eb.AddUint64(tracelogging.FieldStartTime, uint64(span.StartTime().UnixNano()),
		eventheader.FormatTime, fieldTagRealTime)
	eb.AddString(tracelogging.FieldKind, trace.ValidateSpanKind(span.SpanKind()).String(),
		eventheader.FormatDefault, 0)
	addIDs(eb, traceID, spanID, pSpanID)
	if err := eb.Write(es, &activityID, relatedID); err != nil {
		return err
	}

	if evs := span.Events(); len(evs) > 0 && e.eventSet.Enabled() {
		for _, ev := range evs {
			eb.Reset(ev.Name, eventTagIgnoreTime)
			eb.AddUint64(tracelogging.FieldTime, uint64(ev.Time.UnixNano()),
				eventheader.FormatTime, fieldTagRealTime)
			addIDs(eb, traceID, spanID, pSpanID)
			if err := e.addAttributes(eb, ev.Attributes); err != nil {
				return err
			}
			if err := eb.Write(e.eventSet, &activityID, nil); err != nil {
				return err
			}
		}
	}

	if links := span.Links(); len(links) > 0 && e.linkSet.Enabled() {
		for _, l := range links {
			eb.Reset(span.Name(), eventTagIgnoreTime)
			eb.AddUint64(tracelogging.FieldTime, uint64(span.StartTime().UnixNano()),
				eventheader.FormatTime, fieldTagRealTime)
			eb.AddString(tracelogging.FieldLinkTraceID, l.SpanContext.TraceID().String(), eventheader.FormatDefault, 0)
			eb.AddString(tracelogging.FieldLinkSpanID, l.SpanContext.SpanID().String(), eventheader.FormatDefault, 0)
			if err := e.addAttributes(eb, l.Attributes); err != nil {
				return err
			}
			if err := eb.Write(e.linkSet, &activityID, relatedID); err != nil {
				return err
			}
		}
	}

	eb.Reset(span.Name(), eventTagIgnoreTime)
	eb.Opcode(eventheader.OpcodeActivityStop)
	eb.AddUint64(tracelogging.FieldEndTime, uint64(span.EndTime().UnixNano()),
		eventheader.FormatTime, fieldTagRealTime)
	addIDs(eb, traceID, spanID, pSpanID)
	if status.Code != codes.Unset {
		eb.AddString(tracelogging.FieldStatusCode, status.Code.String(), eventheader.FormatDefault, 0)
		if status.Code == codes.Error && status.Description != "" {
			eb.AddString(tracelogging.FieldStatusMessage, status.Description, eventheader.FormatDefault, 0)
		}
	}
	if err := e.addAttributes(eb, span.Attributes()); err != nil {
		return err
	}
	return eb.Write(es, &activityID, relatedID)
}

func addIDs(eb *eventheader.EventBuilder, traceID trace.TraceID, spanID, pSpanID trace.SpanID) {
	eb.AddString(tracelogging.FieldTraceID, traceID.String(), eventheader.FormatDefault, 0)
	eb.AddString(tracelogging.FieldSpanID, spanID.String(), eventheader.FormatDefault, 0)
	if pSpanID.IsValid() {
		eb.AddString(tracelogging.FieldParentSpanID, pSpanID.String(), eventheader.FormatDefault, 0)
	}
}

// addAttributes adds an attribute set either as one JSON payload field or as
// one typed field per attribute, per the exporter's configuration.
func (e *exporter) addAttributes(eb *eventheader.EventBuilder, attrs []attribute.KeyValue) error {
	if e.jsonPayload {
		if len(attrs) == 0 {
			return nil
		}
		payload, err := tracelogging.PayloadJSON(attrs)
		if err != nil {
			return err
		}
		eb.AddString(tracelogging.FieldPayload, payload, eventheader.FormatStringJSON, 0)
		return nil
	}
	addFields(eb, attrs)
	return nil
}

// blockAttributes clips an attribute list so a struct block's field count
// (used fields plus the attributes) stays within [eventheader.MaxStructFields].
func blockAttributes(attrs []attribute.KeyValue, used int) []attribute.KeyValue {
	if max := eventheader.MaxStructFields - used; len(attrs) > max {
		attrs = attrs[:max]
	}
	return attrs
}

func addFields(eb *eventheader.EventBuilder, attrs []attribute.KeyValue) {
	for _, a := range attrs {
		name := string(a.Key)
		switch a.Value.Type() {
		case attribute.BOOL:
			eb.AddBool(name, a.Value.AsBool(), 0)
		case attribute.INT64:
			eb.AddInt64(name, a.Value.AsInt64(), eventheader.FormatSignedInt, 0)
		case attribute.FLOAT64:
			eb.AddFloat64(name, a.Value.AsFloat64(), eventheader.FormatFloat, 0)
		case attribute.STRING:
			eb.AddString(name, a.Value.AsString(), eventheader.FormatDefault, 0)
		case attribute.BOOLSLICE:
			eb.AddBoolSequence(name, a.Value.AsBoolSlice(), 0)
		case attribute.INT64SLICE:
			eb.AddInt64Sequence(name, a.Value.AsInt64Slice(), eventheader.FormatSignedInt, 0)
		case attribute.FLOAT64SLICE:
			eb.AddFloat64Sequence(name, a.Value.AsFloat64Slice(), 0)
		case attribute.STRINGSLICE:
			eb.AddStringSequence(name, a.Value.AsStringSlice(), eventheader.FormatDefault, 0)
		default:
			// unknown shapes fall back to their text rendering
			eb.AddString(name, a.Value.Emit(), eventheader.FormatDefault, 0)
		}
	}
}

package jsonwriter

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// Need a span struct that round-trips through JSON.
//
// [tracetest.SpanStub] does not serialize well, since [*resource.Resource],
// [attribute.KeyValue] and [trace.SpanContext] either have private fields or
// do not implement [json.Unmarshaler], and OTLP is difficult to transform
// back into a [tracesdk.ReadOnlySpan]. So implement our own, based on
// [tracetest.SpanStub].

type Span struct {
	Name                 string                `json:",omitempty"`
	TraceID              TraceID               `json:",omitempty"`
	SpanID               SpanID                `json:",omitempty"`
	ParentSpanID         SpanID                `json:",omitempty"`
	TraceState           string                `json:",omitempty"`
	Kind                 trace.SpanKind        `json:",omitempty"`
	StartTimeUnixNano    int64                 `json:",omitempty"`
	EndTimeUnixNano      int64                 `json:",omitempty"`
	Attributes           []KeyValue            `json:",omitempty"`
	Events               []Event               `json:",omitempty"`
	Links                []Link                `json:",omitempty"`
	Status               tracesdk.Status       `json:",omitempty"`
	DroppedAttributes    int64                 `json:",omitempty"`
	Resource             Resource              `json:",omitempty"`
	InstrumentationScope instrumentation.Scope `json:",omitempty"`
}

type Event struct {
	Name         string     `json:",omitempty"`
	TimeUnixNano int64      `json:",omitempty"`
	Attributes   []KeyValue `json:",omitempty"`
}

type Link struct {
	TraceID    TraceID    `json:",omitempty"`
	SpanID     SpanID     `json:",omitempty"`
	Attributes []KeyValue `json:",omitempty"`
}

func FromReadOnly(ro tracesdk.ReadOnlySpan) (Span, error) {
	if ro == nil {
		return Span{}, nil
	}

	attrs, err := keyValueList(ro.Attributes())
	if err != nil {
		return Span{}, err
	}

	var events []Event
	for _, ev := range ro.Events() {
		as, err := keyValueList(ev.Attributes)
		if err != nil {
			return Span{}, fmt.Errorf("event %s: %w", ev.Name, err)
		}
		events = append(events, Event{
			Name:         ev.Name,
			TimeUnixNano: ev.Time.UnixNano(),
			Attributes:   as,
		})
	}

	var links []Link
	for _, l := range ro.Links() {
		as, err := keyValueList(l.Attributes)
		if err != nil {
			return Span{}, fmt.Errorf("link %s: %w", l.SpanContext.SpanID(), err)
		}
		links = append(links, Link{
			TraceID:    TraceID(l.SpanContext.TraceID()),
			SpanID:     SpanID(l.SpanContext.SpanID()),
			Attributes: as,
		})
	}

	sc := ro.SpanContext()
	return Span{
		Name:                 ro.Name(),
		TraceID:              TraceID(sc.TraceID()),
		SpanID:               SpanID(sc.SpanID()),
		ParentSpanID:         SpanID(ro.Parent().SpanID()),
		TraceState:           sc.TraceState().String(),
		Kind:                 trace.ValidateSpanKind(ro.SpanKind()),
		StartTimeUnixNano:    ro.StartTime().UnixNano(),
		EndTimeUnixNano:      ro.EndTime().UnixNano(),
		Attributes:           attrs,
		Events:               events,
		Links:                links,
		Status:               ro.Status(),
		DroppedAttributes:    int64(ro.DroppedAttributes()),
		Resource:             newResource(ro.Resource()),
		InstrumentationScope: ro.InstrumentationScope(),
	}, nil
}

// Snapshot converts the span back into a [tracesdk.ReadOnlySpan], using
// tracetest rather than implementing our own read-only span.
func (s *Span) Snapshot() (tracesdk.ReadOnlySpan, error) {
	attrs, err := toAttributes(s.Attributes)
	if err != nil {
		return nil, err
	}

	events := make([]tracesdk.Event, 0, len(s.Events))
	for _, ev := range s.Events {
		as, err := toAttributes(ev.Attributes)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.Name, err)
		}
		events = append(events, tracesdk.Event{
			Name:       ev.Name,
			Time:       time.Unix(0, ev.TimeUnixNano),
			Attributes: as,
		})
	}

	links := make([]tracesdk.Link, 0, len(s.Links))
	for _, l := range s.Links {
		as, err := toAttributes(l.Attributes)
		if err != nil {
			return nil, err
		}
		links = append(links, tracesdk.Link{
			SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
				TraceID: trace.TraceID(l.TraceID),
				SpanID:  trace.SpanID(l.SpanID),
			}),
			Attributes: as,
		})
	}

	// ignore tracestate parse errors, and leave the SpanContext's trace state as blank
	ts, _ := trace.ParseTraceState(s.TraceState)
	ro := &tracetest.SpanStub{
		Name: s.Name,
		SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID(s.TraceID),
			SpanID:     trace.SpanID(s.SpanID),
			TraceState: ts,
			TraceFlags: trace.FlagsSampled,
		}),
		Parent: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID(s.TraceID),
			SpanID:     trace.SpanID(s.ParentSpanID),
			TraceFlags: trace.FlagsSampled,
		}),
		SpanKind:               trace.ValidateSpanKind(s.Kind),
		Attributes:             attrs,
		Events:                 events,
		Links:                  links,
		DroppedAttributes:      int(s.DroppedAttributes),
		Status:                 s.Status,
		StartTime:              time.Unix(0, s.StartTimeUnixNano),
		EndTime:                time.Unix(0, s.EndTimeUnixNano),
		Resource:               s.Resource.toResource(),
		InstrumentationLibrary: s.InstrumentationScope,
	}

	return ro.Snapshot(), nil
}

func (s *Span) Valid() bool {
	return !(s.Name == "" || s.TraceID == TraceID([16]byte{}) || s.SpanID == SpanID([8]byte{}) || s.Kind == trace.SpanKindUnspecified)
}

// Custom ID types so the hex forms round-trip.

type TraceID [16]byte

func (x TraceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(x[:]))
}

func (x *TraceID) UnmarshalJSON(b []byte) error {
	return unmarshalHex(b, x[:])
}

type SpanID [8]byte

func (x SpanID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(x[:]))
}

func (x *SpanID) UnmarshalJSON(b []byte) error {
	return unmarshalHex(b, x[:])
}

func unmarshalHex(b, dst []byte) error {
	s := ""
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if hex.DecodedLen(len(s)) != len(dst) {
		return fmt.Errorf("invalid ID string: %s", s)
	}

	bb, err := hex.DecodeString(s)
	if err != nil {
		return err
	}

	copy(dst, bb)
	return nil
}

type Resource struct {
	Attributes []KeyValue `json:",omitempty"`
	SchemaURL  string     `json:",omitempty"`
}

func newResource(rsc *resource.Resource) Resource {
	if rsc == nil {
		return Resource{}
	}
	// resource attributes are always one of the supported value types
	attrs, _ := keyValueList(rsc.Attributes())
	return Resource{
		Attributes: attrs,
		SchemaURL:  rsc.SchemaURL(),
	}
}

func (r Resource) toResource() *resource.Resource {
	attrs, err := toAttributes(r.Attributes)
	if err != nil || len(attrs) == 0 {
		return nil
	}
	return resource.NewWithAttributes(r.SchemaURL, attrs...)
}

// KeyValue is an [attribute.KeyValue] in a form that survives JSON: the value
// type travels alongside the raw value, so decoding can rebuild the exact
// attribute instead of guessing from JSON's type system.
type KeyValue struct {
	Key   string          `json:",omitempty"`
	Type  string          `json:",omitempty"`
	Value json.RawMessage `json:",omitempty"`
}

func toKeyValue(a attribute.KeyValue) (KeyValue, error) {
	v, err := json.Marshal(a.Value.AsInterface())
	if err != nil {
		return KeyValue{}, fmt.Errorf("marshal attribute %s: %w", a.Key, err)
	}
	return KeyValue{
		Key:   string(a.Key),
		Type:  a.Value.Type().String(),
		Value: v,
	}, nil
}

func (kv KeyValue) attribute() (attribute.KeyValue, error) {
	switch kv.Type {
	case attribute.BOOL.String():
		return unmarshalAttr(kv, attribute.Bool)
	case attribute.INT64.String():
		return unmarshalAttr(kv, attribute.Int64)
	case attribute.FLOAT64.String():
		return unmarshalAttr(kv, attribute.Float64)
	case attribute.STRING.String():
		return unmarshalAttr(kv, attribute.String)
	case attribute.BOOLSLICE.String():
		return unmarshalAttr(kv, attribute.BoolSlice)
	case attribute.INT64SLICE.String():
		return unmarshalAttr(kv, attribute.Int64Slice)
	case attribute.FLOAT64SLICE.String():
		return unmarshalAttr(kv, attribute.Float64Slice)
	case attribute.STRINGSLICE.String():
		return unmarshalAttr(kv, attribute.StringSlice)
	}
	return attribute.KeyValue{}, fmt.Errorf("attribute %s: unknown value type %q", kv.Key, kv.Type)
}

func unmarshalAttr[T any](kv KeyValue, f func(string, T) attribute.KeyValue) (attribute.KeyValue, error) {
	var v T
	if err := json.Unmarshal(kv.Value, &v); err != nil {
		return attribute.KeyValue{}, fmt.Errorf("unmarshal attribute %s: %w", kv.Key, err)
	}
	return f(kv.Key, v), nil
}

func keyValueList(attrs []attribute.KeyValue) ([]KeyValue, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	kvs := make([]KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kv, err := toKeyValue(a)
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv)
	}
	return kvs, nil
}

func toAttributes(kvs []KeyValue) ([]attribute.KeyValue, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	attrs := make([]attribute.KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		a, err := kv.attribute()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

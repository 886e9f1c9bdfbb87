package jsonwriter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
)

func TestKeyValueJSON(t *testing.T) {
	tests := []attribute.KeyValue{
		attribute.String("astring", "string"),
		attribute.StringSlice("some strings", []string{"testing", "string"}),
		attribute.Bool("toggle", true),
		attribute.BoolSlice("a mask", []bool{true, false, true, true, false, false}),
		attribute.Int64("count", 16),
		attribute.Int64Slice("counts", []int64{2, 3, 16, 58}),
		attribute.Float64("ratio", 0.25),
		attribute.Float64Slice("numbers", []float64{3, 2.4, 19, 58.33}),
	}
	for _, a := range tests {
		a := a
		t.Run(fmt.Sprint(a.Key), func(t *testing.T) {
			kv, err := toKeyValue(a)
			if err != nil {
				t.Fatalf("to key value: %v", err)
			}

			b, err := json.Marshal(kv)
			if err != nil {
				t.Fatalf("json marshal: %v", err)
			}

			kv2 := KeyValue{}
			if err := json.Unmarshal(b, &kv2); err != nil {
				t.Fatalf("json unmarshal: %v", err)
			}

			a2, err := kv2.attribute()
			if err != nil {
				t.Fatalf("to attribute: %v", err)
			}
			if !reflect.DeepEqual(a, a2) {
				t.Fatalf("%v != %v", a, a2)
			}
		})
	}
}

func testSpan(t *testing.T) tracesdk.ReadOnlySpan {
	t.Helper()

	tID := trace.TraceID([16]byte{0x20, 0xaf, 0xc2, 0x2d, 0x82, 0x90, 0xac, 0x7f, 0x8b, 0x35, 0xf7, 0x9f, 0x7b, 0xa9, 0x1a, 0x9b})
	sID := trace.SpanID([8]byte{0x19, 0x6d, 0x90, 0xc1, 0xc0, 0x22, 0xc0, 0xd8})
	psID := trace.SpanID([8]byte{0x9c, 0xb1, 0x02, 0x78, 0x7a, 0x77, 0x62, 0x7c})
	ts, err := trace.ParseTraceState("testing=bob:hi;otherstate:slightlylongervalue")
	if err != nil {
		t.Fatalf("trace state: %v", err)
	}

	now := time.Now()
	return (&tracetest.SpanStub{
		Name: "span.name",
		SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    tID,
			SpanID:     sID,
			TraceState: ts,
			TraceFlags: trace.FlagsSampled,
		}),
		Parent: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    tID,
			SpanID:     psID,
			TraceFlags: trace.FlagsSampled,
		}),
		SpanKind: trace.SpanKindConsumer,
		Attributes: []attribute.KeyValue{
			attribute.Int64("count", 16),
			attribute.Float64Slice("some numbers", []float64{3, 2.4, 19, 58.33}),
			attribute.String("stringThing", "this is a string"),
		},
		Events: []tracesdk.Event{{
			Name:       "an event",
			Time:       now.Add(-time.Second),
			Attributes: []attribute.KeyValue{attribute.Bool("flagged", true)},
		}},
		Links: []tracesdk.Link{{
			SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
				TraceID: trace.TraceID([16]byte{0x01, 0x02}),
				SpanID:  trace.SpanID([8]byte{0x03, 0x04}),
			}),
			Attributes: []attribute.KeyValue{attribute.String("why", "because")},
		}},
		DroppedAttributes: 4,
		Status: tracesdk.Status{
			Code:        codes.Error,
			Description: t.Name() + " failed somehow",
		},
		StartTime: now.Add(-2 * time.Second),
		EndTime:   now,
		Resource: resource.NewWithAttributes(semconv.SchemaURL,
			semconv.TelemetrySDKLanguageGo,
			semconv.ServiceName("testing"),
		),
		InstrumentationLibrary: instrumentation.Scope{
			Name:      "github.com/Microsoft/go-otel-tracelogging/exporters/jsonwriter",
			SchemaURL: semconv.SchemaURL,
		},
	}).Snapshot()
}

func TestJSONMarshal(t *testing.T) {
	span, err := FromReadOnly(testSpan(t))
	if err != nil {
		t.Fatalf("from read only: %v", err)
	}

	b, err := json.Marshal(span)
	if err != nil {
		t.Fatalf("marshal span: %v", err)
	}

	var span2 Span
	if err := json.Unmarshal(b, &span2); err != nil {
		t.Fatalf("unmarshal span: %v", err)
	}

	if !span2.Valid() {
		t.Fatalf("invalid span: %#+v", span2)
	}

	if !reflect.DeepEqual(span, span2) {
		t.Fatalf("%v != %v", span, span2)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ro := testSpan(t)
	span, err := FromReadOnly(ro)
	if err != nil {
		t.Fatalf("from read only: %v", err)
	}

	ro2, err := span.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if ro2.Name() != ro.Name() {
		t.Errorf("got name %q, wanted %q", ro2.Name(), ro.Name())
	}
	if ro2.SpanContext().SpanID() != ro.SpanContext().SpanID() {
		t.Errorf("span ID did not survive the round trip")
	}
	if !reflect.DeepEqual(ro2.Attributes(), ro.Attributes()) {
		t.Errorf("got attributes %v, wanted %v", ro2.Attributes(), ro.Attributes())
	}
	evs, evs2 := ro.Events(), ro2.Events()
	if len(evs2) != len(evs) {
		t.Fatalf("got %d events, wanted %d", len(evs2), len(evs))
	}
	for i := range evs {
		if evs2[i].Name != evs[i].Name || !evs2[i].Time.Equal(evs[i].Time) ||
			!reflect.DeepEqual(evs2[i].Attributes, evs[i].Attributes) {
			t.Errorf("event %d did not survive the round trip: %v != %v", i, evs2[i], evs[i])
		}
	}
	if len(ro2.Links()) != 1 || ro2.Links()[0].SpanContext.SpanID() != ro.Links()[0].SpanContext.SpanID() {
		t.Errorf("links did not survive the round trip")
	}
}

func TestExporter(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	e, err := New(&buf)
	if err != nil {
		t.Fatalf("create exporter: %v", err)
	}

	if err := e.ExportSpans(ctx, []tracesdk.ReadOnlySpan{testSpan(t), testSpan(t)}); err != nil {
		t.Fatalf("export spans: %v", err)
	}
	if err := e.(*exporter).ForceFlush(ctx); err != nil {
		t.Fatalf("force flush: %v", err)
	}
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	spans := make([]Span, 0, 2)
	j := json.NewDecoder(&buf)
	for {
		s := Span{}
		if err := j.Decode(&s); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("json decoder: %v", err)
			}
			break
		}
		if !s.Valid() {
			t.Fatalf("invalid span: %#+v", s)
		}
		spans = append(spans, s)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, wanted 2", len(spans))
	}

	if err := e.ExportSpans(ctx, []tracesdk.ReadOnlySpan{testSpan(t)}); !errors.Is(err, tracelogging.ErrClosed) {
		t.Fatalf("got %v, wanted ErrClosed", err)
	}
}

func TestNewNilWriter(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected an error for a nil writer")
	}
}

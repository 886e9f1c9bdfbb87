package tracelogging

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanLevel(t *testing.T) {
	for _, tc := range []struct {
		code codes.Code
		want Level
	}{
		{codes.Error, LevelError},
		{codes.Ok, LevelInfo},
		{codes.Unset, LevelVerbose},
	} {
		if got := SpanLevel(tc.code); got != tc.want {
			t.Errorf("SpanLevel(%v) = %v, wanted %v", tc.code, got, tc.want)
		}
	}
}

func TestActivityID(t *testing.T) {
	spID, err := trace.SpanIDFromHex("abcdef0123456789")
	if err != nil {
		t.Fatal(err)
	}

	want := [16]byte{0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89}
	if got := ActivityID(spID); got != want {
		t.Errorf("got %x, wanted %x", got, want)
	}

	if got := ActivityID(trace.SpanID{}); got != ([16]byte{}) {
		t.Errorf("invalid span ID should produce the zero activity ID, got %x", got)
	}
}

func TestDefaultKeywords(t *testing.T) {
	kw := DefaultKeywords()
	if kw.Span&kw.Event != 0 || kw.Span&kw.Links != 0 || kw.Event&kw.Links != 0 {
		t.Errorf("default keyword masks overlap: %+v", kw)
	}
	if kw.EventLevel != LevelVerbose || kw.LinksLevel != LevelVerbose {
		t.Errorf("default sub-event levels should be verbose: %+v", kw)
	}
}

func TestPayloadJSON(t *testing.T) {
	s, err := PayloadJSON([]attribute.KeyValue{
		attribute.String("http.method", "GET"),
		attribute.Int("http.status_code", 200),
		attribute.Bool("cache.hit", false),
		attribute.Float64("ratio", 0.5),
		attribute.StringSlice("tags", []string{"a", "b"}),
	})
	if err != nil {
		t.Fatalf("PayloadJSON: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	want := map[string]any{
		"http.method":      "GET",
		"http.status_code": float64(200),
		"cache.hit":        false,
		"ratio":            0.5,
		"tags":             []any{"a", "b"},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestLevelString(t *testing.T) {
	if got := LevelError.String(); got != "error" {
		t.Errorf("got %q", got)
	}
	if got := Level(9).String(); got != "level(9)" {
		t.Errorf("got %q", got)
	}
}

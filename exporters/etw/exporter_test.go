//go:build windows

package etw

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
)

func TestActivityGUID(t *testing.T) {
	spID, err := trace.SpanIDFromHex("abcdef0123456789")
	if err != nil {
		t.Fatal(err)
	}
	got := activityGUID(spID).String()
	want := "abcdef01-2345-6789-0000-000000000000"
	if !strings.EqualFold(got, want) {
		t.Fatalf("got %s, wanted %s", got, want)
	}
}

func TestFiletime(t *testing.T) {
	// the Unix epoch in FILETIME ticks
	if got := filetime(time.Unix(0, 0)); got != epochDelta {
		t.Errorf("got %d, wanted %d", got, epochDelta)
	}
	// one second later is 10^7 more 100ns intervals
	if got := filetime(time.Unix(1, 0)); got != epochDelta+10_000_000 {
		t.Errorf("got %d, wanted %d", got, epochDelta+10_000_000)
	}
	if got := filetime(time.Unix(0, 150)); got != epochDelta+1 {
		t.Errorf("sub-tick nanoseconds should truncate: got %d", got)
	}
}

func TestNewWithoutProvider(t *testing.T) {
	if _, err := New(); !errors.Is(err, tracelogging.ErrNoProvider) {
		t.Fatalf("got %v, wanted ErrNoProvider", err)
	}
}

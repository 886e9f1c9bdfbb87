// Package jsonwriter provides an OTel span exporter that writes spans as JSON
// objects to an [io.Writer], one per line. It is meant for debugging the
// TraceLogging exporters (diffing what a trace session sees against what the
// SDK produced) and for shuttling spans across a process boundary to be
// re-exported on the other side: unlike stdouttrace, the serialized form can
// be decoded back into a [tracesdk.ReadOnlySpan].
package jsonwriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
	isync "github.com/Microsoft/go-otel-tracelogging/internal/sync"
)

var errNilWriter = errors.New("nil writer")

// thread-safe; the encoder is guarded since exports may run concurrently
type exporter struct {
	mu sync.Mutex
	j  *json.Encoder

	lc       isync.Lifecycle
	shutdown isync.OnceErr[struct{}]
}

var _ tracesdk.SpanExporter = (*exporter)(nil)

// New returns a [tracesdk.SpanExporter] that writes spans to w as JSON, one
// object per line.
func New(w io.Writer) (tracesdk.SpanExporter, error) {
	if w == nil {
		return nil, errNilWriter
	}
	j := json.NewEncoder(w)
	j.SetEscapeHTML(false)
	j.SetIndent("", "")

	return &exporter{j: j}, nil
}

func (e *exporter) ExportSpans(ctx context.Context, spans []tracesdk.ReadOnlySpan) error {
	if !e.lc.Begin() {
		return tracelogging.ErrClosed
	}
	defer e.lc.End()

	var errs []error
	for _, ro := range spans {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		span, err := FromReadOnly(ro)
		if err != nil {
			errs = append(errs, fmt.Errorf("span %s: %w", ro.Name(), err))
			continue
		}

		e.mu.Lock()
		err = e.j.Encode(span)
		e.mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("span %s: %w", ro.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ForceFlush waits for in-flight ExportSpans calls to finish. The encoder
// writes through to the underlying writer, so nothing else is buffered.
func (e *exporter) ForceFlush(ctx context.Context) error {
	return e.lc.Wait(ctx)
}

func (e *exporter) Shutdown(ctx context.Context) error {
	e.lc.BeginShutdown()
	_, err := e.shutdown.DoCtx(ctx, func(ctx context.Context) (struct{}, error) {
		err := e.lc.Drain(ctx)
		e.lc.FinishShutdown()
		return struct{}{}, err
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

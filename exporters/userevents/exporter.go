//go:build linux

package userevents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
	"github.com/Microsoft/go-otel-tracelogging/internal/eventheader"
	isync "github.com/Microsoft/go-otel-tracelogging/internal/sync"
)

// thread-safe; tracks in-flight exports so Shutdown can drain them
type exporter struct {
	provider      *eventheader.Provider
	closeProvider bool // if the provider is owned by the exporter

	kw             tracelogging.Keywords
	jsonPayload    bool
	activityEvents bool

	// one registered tracepoint per (level, keyword) the exporter can emit at
	spanSets map[tracelogging.Level]*eventheader.EventSet
	eventSet *eventheader.EventSet
	linkSet  *eventheader.EventSet

	lc       isync.Lifecycle
	shutdown isync.OnceErr[struct{}]

	builders sync.Pool // of *eventheader.EventBuilder
}

var _ tracesdk.SpanExporter = (*exporter)(nil)

// New returns a [tracesdk.SpanExporter] that exports to Linux user_events.
//
// Construction registers the exporter's tracepoints with the kernel; a
// registration failure fails construction rather than being deferred to the
// first export.
func New(opts ...Option) (tracesdk.SpanExporter, error) {
	e := &exporter{
		kw:       tracelogging.DefaultKeywords(),
		spanSets: make(map[tracelogging.Level]*eventheader.EventSet, 3),
	}
	e.builders.New = func() any { return eventheader.NewEventBuilder() }

	for _, o := range opts {
		if err := o(e); err != nil {
			return nil, err
		}
	}

	if e.provider == nil {
		return nil, tracelogging.ErrNoProvider
	}

	if err := e.registerSets(); err != nil {
		if e.closeProvider {
			_ = e.provider.Close()
		}
		return nil, fmt.Errorf("register tracepoints: %w", err)
	}

	return e, nil
}

// registerSets registers one tracepoint per level a span event can be written
// at, plus one each for span events and links.
func (e *exporter) registerSets() error {
	// the three levels SpanLevel can produce
	for _, lvl := range []tracelogging.Level{
		tracelogging.LevelError,
		tracelogging.LevelInfo,
		tracelogging.LevelVerbose,
	} {
		es, err := e.provider.RegisterSet(eventheader.Level(lvl), e.kw.Span)
		if err != nil {
			return err
		}
		e.spanSets[lvl] = es
	}

	var err error
	if e.eventSet, err = e.provider.RegisterSet(eventheader.Level(e.kw.EventLevel), e.kw.Event); err != nil {
		return err
	}
	e.linkSet, err = e.provider.RegisterSet(eventheader.Level(e.kw.LinksLevel), e.kw.Links)
	return err
}

func (e *exporter) ExportSpans(ctx context.Context, spans []tracesdk.ReadOnlySpan) error {
	if !e.lc.Begin() {
		return tracelogging.ErrClosed
	}
	defer e.lc.End()

	var errs []error
	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		// a failed span does not fail the batch; the rest still export
		if err := e.exportSpan(span); err != nil {
			errs = append(errs, fmt.Errorf("span %s: %w", span.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (e *exporter) exportSpan(span tracesdk.ReadOnlySpan) error {
	sc := span.SpanContext()
	if !sc.IsValid() {
		return tracelogging.ErrInvalidSpanContext
	}

	es := e.spanSets[tracelogging.SpanLevel(span.Status().Code)]
	if es == nil || !es.Enabled() {
		// nothing listening at this level; skipping is success
		return nil
	}

	eb := e.builders.Get().(*eventheader.EventBuilder)
	defer e.builders.Put(eb)

	if e.activityEvents {
		return e.writeActivity(es, eb, span)
	}
	return e.writeSpan(es, eb, span)
}

// ForceFlush waits for in-flight ExportSpans calls to finish. Spans are
// written to the kernel synchronously, so nothing else is buffered.
func (e *exporter) ForceFlush(ctx context.Context) error {
	return e.lc.Wait(ctx)
}

func (e *exporter) Shutdown(ctx context.Context) error {
	e.lc.BeginShutdown()
	_, err := e.shutdown.DoCtx(ctx, func(ctx context.Context) (struct{}, error) {
		errs := []error{e.lc.Drain(ctx)}
		// unregister even if the drain timed out, so a cancelled shutdown
		// cannot leak the tracepoint registrations
		if e.closeProvider {
			errs = append(errs, e.provider.Close())
		}
		e.lc.FinishShutdown()
		return struct{}{}, errors.Join(errs...)
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

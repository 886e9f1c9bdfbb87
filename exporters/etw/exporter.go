//go:build windows

package etw

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Microsoft/go-winio/pkg/etw"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
	isync "github.com/Microsoft/go-otel-tracelogging/internal/sync"
)

// thread-safe; tracks in-flight exports so Shutdown can drain them
type exporter struct {
	provider      *etw.Provider
	closeProvider bool // if the provider is owned by the exporter

	kw             tracelogging.Keywords
	jsonPayload    bool
	activityEvents bool

	lc       isync.Lifecycle
	shutdown isync.OnceErr[struct{}]

	// cache scopes and resources since they should not change
	mu     sync.Mutex
	scopes map[instrumentation.Scope]etw.FieldOpt
	rscs   map[attribute.Distinct]etw.FieldOpt // SDK hands out pointers to the original resource struct
}

var _ tracesdk.SpanExporter = (*exporter)(nil)

// New returns a [tracesdk.SpanExporter] that exports to ETW.
func New(opts ...Option) (tracesdk.SpanExporter, error) {
	e := &exporter{
		kw:     tracelogging.DefaultKeywords(),
		scopes: make(map[instrumentation.Scope]etw.FieldOpt),
		rscs:   make(map[attribute.Distinct]etw.FieldOpt),
	}

	for _, o := range opts {
		if err := o(e); err != nil {
			return nil, err
		}
	}

	if e.provider == nil {
		return nil, tracelogging.ErrNoProvider
	}

	return e, nil
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

	lvl := etw.Level(tracelogging.SpanLevel(span.Status().Code))
	if !e.provider.IsEnabledForLevelAndKeyword(lvl, e.kw.Span) {
		// nothing listening at this level; skipping is success
		return nil
	}

	if e.activityEvents {
		return e.writeActivity(lvl, span)
	}
	return e.writeSpan(lvl, span)
}

// writeSpan writes the whole span as one event, with its sub-events and links
// nested as struct blocks.
func (e *exporter) writeSpan(lvl etw.Level, span tracesdk.ReadOnlySpan) error {
	sc := span.SpanContext()
	spanID := sc.SpanID()
	pSpanID := span.Parent().SpanID()
	status := span.Status()

	opts := []etw.EventOpt{
		etw.WithLevel(lvl),
		etw.WithKeyword(e.kw.Span),
		etw.WithTags(tracelogging.EventTagIgnoreEventTime),
		etw.WithActivityID(activityGUID(spanID)),
	}
	if pSpanID.IsValid() {
		opts = append(opts, etw.WithRelatedActivityID(activityGUID(pSpanID)))
	}

	fields := make([]etw.FieldOpt, 0, len(span.Attributes())+16)
	fields = append(fields,
		etw.StringField(tracelogging.FieldName, span.Name()),
		etw.Uint64Field(tracelogging.FieldEventTime, filetime(span.EndTime())),
		etw.StringField(tracelogging.FieldTraceID, sc.TraceID().String()),
		etw.StringField(tracelogging.FieldSpanID, spanID.String()),
	)
	if pSpanID.IsValid() {
		fields = append(fields, etw.StringField(tracelogging.FieldParentSpanID, pSpanID.String()))
	}
	fields = append(fields,
		// coerce unspecified kinds to internal
		etw.StringField(tracelogging.FieldKind, trace.ValidateSpanKind(span.SpanKind()).String()),
		etw.Uint64Field(tracelogging.FieldStartTime, filetime(span.StartTime())),
		etw.Uint64Field(tracelogging.FieldEndTime, filetime(span.EndTime())),
	)

	// codes.Unset is the default and means the operation was not validated
	if status.Code != codes.Unset {
		fields = append(fields, etw.StringField(tracelogging.FieldStatusCode, status.Code.String()))
		if status.Code == codes.Error && status.Description != "" {
			fields = append(fields, etw.StringField(tracelogging.FieldStatusMessage, status.Description))
		}
	}

	for _, f := range []etw.FieldOpt{e.instrumentationScope(span), e.resource(span)} {
		if f != nil {
			fields = append(fields, f)
		}
	}

	fs, err := e.attributeFields(span.Attributes())
	if err != nil {
		return err
	}
	fields = append(fields, fs...)

	for _, ev := range span.Events() {
		sub := make([]etw.FieldOpt, 0, len(ev.Attributes)+2)
		sub = append(sub,
			etw.StringField(tracelogging.FieldName, ev.Name),
			etw.Uint64Field(tracelogging.FieldTime, filetime(ev.Time)),
		)
		sub = append(sub, attributesToFields(ev.Attributes)...)
		fields = append(fields, etw.Struct(tracelogging.FieldEvent, sub...))
	}

	for _, l := range span.Links() {
		sub := make([]etw.FieldOpt, 0, len(l.Attributes)+2)
		sub = append(sub,
			etw.StringField(tracelogging.FieldLinkTraceID, l.SpanContext.TraceID().String()),
			etw.StringField(tracelogging.FieldLinkSpanID, l.SpanContext.SpanID().String()),
		)
		sub = append(sub, attributesToFields(l.Attributes)...)
		fields = append(fields, etw.Struct(tracelogging.FieldLink, sub...))
	}

	return e.provider.WriteEvent(tracelogging.EventNameSpan, opts, fields)
}

// writeActivity writes the span as an ETW activity: a start and a stop event
// with matching opcodes, with sub-events and links as standalone events in
// between, all carrying the span's activity ID.
func (e *exporter) writeActivity(lvl etw.Level, span tracesdk.ReadOnlySpan) error {
	sc := span.SpanContext()
	spanID := sc.SpanID()
	traceID := sc.TraceID()
	pSpanID := span.Parent().SpanID()
	status := span.Status()

	actOpts := func(extra ...etw.EventOpt) []etw.EventOpt {
		opts := []etw.EventOpt{
			etw.WithTags(tracelogging.EventTagIgnoreEventTime),
			etw.WithActivityID(activityGUID(spanID)),
		}
		if pSpanID.IsValid() {
			opts = append(opts, etw.WithRelatedActivityID(activityGUID(pSpanID)))
		}
		return append(opts, extra...)
	}

	fields := []etw.FieldOpt{
		etw.Uint64Field(tracelogging.FieldStartTime, filetime(span.StartTime())),
		etw.StringField(tracelogging.FieldKind, trace.ValidateSpanKind(span.SpanKind()).String()),
	}
	fields = append(fields, idFields(traceID, spanID, pSpanID)...)
	if err := e.provider.WriteEvent(span.Name(),
		actOpts(etw.WithLevel(lvl), etw.WithKeyword(e.kw.Span), etw.WithOpcode(etw.OpcodeStart)),
		fields,
	); err != nil {
		return err
	}

	evLevel := etw.Level(e.kw.EventLevel)
	if evs := span.Events(); len(evs) > 0 && e.provider.IsEnabledForLevelAndKeyword(evLevel, e.kw.Event) {
		for _, ev := range evs {
			fields = fields[:0]
			fields = append(fields, etw.Uint64Field(tracelogging.FieldTime, filetime(ev.Time)))
			fields = append(fields, idFields(traceID, spanID, pSpanID)...)
			fs, err := e.attributeFields(ev.Attributes)
			if err != nil {
				return err
			}
			fields = append(fields, fs...)
			if err := e.provider.WriteEvent(ev.Name,
				actOpts(etw.WithLevel(evLevel), etw.WithKeyword(e.kw.Event)),
				fields,
			); err != nil {
				return err
			}
		}
	}

	linkLevel := etw.Level(e.kw.LinksLevel)
	if links := span.Links(); len(links) > 0 && e.provider.IsEnabledForLevelAndKeyword(linkLevel, e.kw.Links) {
		for _, l := range links {
			fields = fields[:0]
			fields = append(fields,
				etw.StringField(tracelogging.FieldLinkTraceID, l.SpanContext.TraceID().String()),
				etw.StringField(tracelogging.FieldLinkSpanID, l.SpanContext.SpanID().String()),
			)
			fs, err := e.attributeFields(l.Attributes)
			if err != nil {
				return err
			}
			fields = append(fields, fs...)
			if err := e.provider.WriteEvent(span.Name(),
				actOpts(etw.WithLevel(linkLevel), etw.WithKeyword(e.kw.Links)),
				fields,
			); err != nil {
				return err
			}
		}
	}

	fields = fields[:0]
	fields = append(fields, etw.Uint64Field(tracelogging.FieldEndTime, filetime(span.EndTime())))
	fields = append(fields, idFields(traceID, spanID, pSpanID)...)
	if status.Code != codes.Unset {
		fields = append(fields, etw.StringField(tracelogging.FieldStatusCode, status.Code.String()))
		if status.Code == codes.Error && status.Description != "" {
			fields = append(fields, etw.StringField(tracelogging.FieldStatusMessage, status.Description))
		}
	}
	fs, err := e.attributeFields(span.Attributes())
	if err != nil {
		return err
	}
	fields = append(fields, fs...)
	return e.provider.WriteEvent(span.Name(),
		actOpts(etw.WithLevel(lvl), etw.WithKeyword(e.kw.Span), etw.WithOpcode(etw.OpcodeStop)),
		fields,
	)
}

// ForceFlush waits for in-flight ExportSpans calls to finish. Events are
// handed to ETW synchronously, so nothing else is buffered.
func (e *exporter) ForceFlush(ctx context.Context) error {
	return e.lc.Wait(ctx)
}

func (e *exporter) Shutdown(ctx context.Context) error {
	e.lc.BeginShutdown()
	_, err := e.shutdown.DoCtx(ctx, func(ctx context.Context) (struct{}, error) {
		errs := []error{e.lc.Drain(ctx)}
		// close the provider even if the drain timed out, so a cancelled
		// shutdown cannot leak the registration
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

func (e *exporter) instrumentationScope(s tracesdk.ReadOnlySpan) etw.FieldOpt {
	is := s.InstrumentationScope()

	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.scopes[is]; ok {
		return f
	}

	fields := make([]etw.FieldOpt, 0, 2)
	if is.Name != "" {
		fields = append(fields, etw.StringField("name", is.Name))
	}
	if is.Version != "" {
		fields = append(fields, etw.StringField("version", is.Version))
	}

	var f etw.FieldOpt
	if len(fields) > 0 {
		f = etw.Struct("otel.scope", fields...)
	}

	e.scopes[is] = f
	return f
}

func (e *exporter) resource(s tracesdk.ReadOnlySpan) etw.FieldOpt {
	rsc := s.Resource()
	k := rsc.Equivalent()

	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.rscs[k]; ok {
		return f
	}

	var f etw.FieldOpt
	if fs := attributesToFields(rsc.Attributes()); len(fs) > 0 {
		f = etw.Struct("otel.resource", fs...)
	}
	e.rscs[k] = f
	return f
}

// attributeFields renders an attribute set either as one JSON payload field or
// as one typed field per attribute, per the exporter's configuration.
func (e *exporter) attributeFields(attrs []attribute.KeyValue) ([]etw.FieldOpt, error) {
	if e.jsonPayload {
		if len(attrs) == 0 {
			return nil, nil
		}
		payload, err := tracelogging.PayloadJSON(attrs)
		if err != nil {
			return nil, err
		}
		return []etw.FieldOpt{etw.StringField(tracelogging.FieldPayload, payload)}, nil
	}
	return attributesToFields(attrs), nil
}

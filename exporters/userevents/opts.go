//go:build linux

package userevents

import (
	tracelogging "github.com/Microsoft/go-otel-tracelogging"
	"github.com/Microsoft/go-otel-tracelogging/internal/eventheader"
)

type Option func(*exporter) error

// WithNewProvider registers a new user_events provider for the exporter to
// use. The provider is closed (and its tracepoints unregistered) when the
// exporter is shut down.
func WithNewProvider(name string, opts ...eventheader.ProviderOpt) Option {
	return func(e *exporter) error {
		provider, err := eventheader.NewProvider(name, opts...)
		if err != nil {
			return err
		}

		e.provider = provider
		e.closeProvider = true
		return nil
	}
}

// WithExistingProvider configures the exporter to use an existing provider.
// The provider is not closed when the exporter is shut down.
func WithExistingProvider(p *eventheader.Provider) Option {
	return func(e *exporter) error {
		e.provider = p
		e.closeProvider = false
		return nil
	}
}

// WithKeywords overrides the keyword and level assignment for spans, span
// events, and links.
//
// The default is [tracelogging.DefaultKeywords].
func WithKeywords(kw tracelogging.Keywords) Option {
	return func(e *exporter) error {
		e.kw = kw
		return nil
	}
}

// WithJSONPayload writes each span's attributes as a single JSON-formatted
// "Payload" field instead of one typed field per attribute, matching the
// layout of the Rust and C++ TraceLogging exporters.
func WithJSONPayload(b bool) Option {
	return func(e *exporter) error {
		e.jsonPayload = b
		return nil
	}
}

// WithActivityEvents switches the exporter from one event per span to the
// activity layout: a start and a stop event per span, plus a standalone event
// per span event and link, all correlated through the span's activity ID.
//
// Collectors that reconstruct timelines from opcodes want this layout; the
// default single-event layout is easier to consume as a flat record stream.
func WithActivityEvents(b bool) Option {
	return func(e *exporter) error {
		e.activityEvents = b
		return nil
	}
}

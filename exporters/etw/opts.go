//go:build windows

package etw

import (
	"github.com/Microsoft/go-winio/pkg/etw"

	tracelogging "github.com/Microsoft/go-otel-tracelogging"
)

type Option func(*exporter) error

// WithNewProvider registers a new ETW provider for the exporter to use. The
// provider ID is derived from the name per the ETW convention unless
// overridden via [etw.WithID]; [etw.WithGroup] joins a provider group.
//
// The provider is closed when the exporter is shut down.
func WithNewProvider(name string, opts ...etw.ProviderOpt) Option {
	return func(e *exporter) error {
		provider, err := etw.NewProviderWithOptions(name, opts...)
		if err != nil {
			return err
		}

		e.provider = provider
		e.closeProvider = true
		return nil
	}
}

// WithExistingProvider configures the exporter to use an existing ETW
// provider. The provider is not closed when the exporter is shut down.
func WithExistingProvider(p *etw.Provider) Option {
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
func WithActivityEvents(b bool) Option {
	return func(e *exporter) error {
		e.activityEvents = b
		return nil
	}
}

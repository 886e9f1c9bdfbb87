package tracelogging

import "errors"

// ErrNoProvider is returned at construction when no tracing provider was
// configured or registration with the OS failed.
var ErrNoProvider = errors.New("no registered tracing provider")

// ErrClosed is returned by ExportSpans after Shutdown has been called.
var ErrClosed = errors.New("exporter is shut down")

// ErrInvalidSpanContext is returned (per span) when a span is missing its
// trace or span ID and cannot be exported.
var ErrInvalidSpanContext = errors.New("invalid span context")

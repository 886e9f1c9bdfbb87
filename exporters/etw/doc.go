// Package etw provides an OTel [trace.SpanExporter] that writes completed
// spans as ETW TraceLogging events, for collection by any ETW session (eg,
// WPR, TraceView, or a Geneva agent).
//
// Spans are written at a level derived from their status, under configurable
// keywords, so sessions can subscribe by severity and category. The exporter
// only writes when some session is listening at the span's level and keyword;
// otherwise a span costs a single enablement check.
//
// This package only builds on Windows; see the sibling userevents package for
// the Linux equivalent.
//
// [trace.SpanExporter]: https://pkg.go.dev/go.opentelemetry.io/otel/sdk/trace#SpanExporter
package etw

// Package userevents provides an OTel [trace.SpanExporter] that writes
// completed spans to the Linux user_events tracing facility, using the
// eventheader record format shared with the Windows ETW exporter.
//
// The exporter registers one tracepoint per (level, keyword) pair it can emit
// at, so perf, ftrace, or any eventheader-aware collector can subscribe to
// span traffic by severity and category without the process paying for
// disabled events.
//
// This package only builds on Linux; see the sibling etw package for the
// Windows equivalent.
//
// [trace.SpanExporter]: https://pkg.go.dev/go.opentelemetry.io/otel/sdk/trace#SpanExporter
package userevents

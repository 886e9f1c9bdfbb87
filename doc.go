// Package tracelogging holds the pieces shared by the ETW and user_events
// span exporters: the wire-level field names, the keyword/level configuration
// and its defaults, the span-status to level mapping, the common error values,
// and the span ID to activity ID conversion.
//
// The exporters themselves live under exporters/etw (Windows) and
// exporters/userevents (Linux). Both implement
// ["go.opentelemetry.io/otel/sdk/trace".SpanExporter] and encode each span as
// one self-describing TraceLogging-style event, so no manifest or schema
// registration is needed before a trace session can decode them.
//
// Based on:
//   - [C++ OTel] ETW Exporter
//   - [Rust OTel] ETW/user_events Exporter
//
// [C++ OTel]: https://github.com/open-telemetry/opentelemetry-cpp/tree/main/exporters/etw
// [Rust OTel]: https://github.com/microsoft/opentelemetry-rust-contrib
package tracelogging

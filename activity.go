package tracelogging

import "go.opentelemetry.io/otel/trace"

// ActivityID converts an 8 byte span ID to a 16 byte activity ID by zero
// padding the last 8 bytes. This allows quickly finding the events for a span
// by searching trace sessions for its activity ID.
//
// While the [W3C] recommends zero-padding on the left when creating trace IDs
// from shorter identifiers, it gives no recommendation for span IDs, so the
// [C++ ETW OTel] convention of right-padding is kept.
//
// [W3C]: https://www.w3.org/TR/trace-context/#interoperating-with-existing-systems-which-use-shorter-identifiers
// [C++ ETW OTel]: https://github.com/open-telemetry/opentelemetry-cpp/blob/7cb7654552d68936d70986bc2ee67f3cc3e0b469/exporters/etw/include/opentelemetry/exporters/etw/etw_config.h#L197
func ActivityID(spanID trace.SpanID) [16]byte {
	var x [16]byte
	if spanID.IsValid() {
		copy(x[:], spanID[:])
	}
	return x
}

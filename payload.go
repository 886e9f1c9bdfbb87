package tracelogging

import (
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
)

// PayloadJSON renders an attribute set as a single JSON object, for use as the
// event's "Payload" field instead of one field per attribute. Keys are sorted,
// matching the other TraceLogging exporters.
//
// Only used when the JSON payload option is enabled; not on the default path.
func PayloadJSON(attrs []attribute.KeyValue) (string, error) {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		// AsInterface maps the attribute onto bool/int64/float64/string or a
		// slice of one of those.
		m[string(a.Key)] = a.Value.AsInterface()
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

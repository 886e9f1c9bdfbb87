package tracelogging

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// Level is the severity assigned to an emitted event, on the shared
// ETW/eventheader 0-5 scale. Lower values are more severe; a session
// enabled at level n receives events with level <= n.
type Level uint8

const (
	LevelAlways Level = iota
	LevelCritical
	LevelError
	LevelWarning
	LevelInfo
	LevelVerbose
)

func (l Level) String() string {
	switch l {
	case LevelAlways:
		return "always"
	case LevelCritical:
		return "critical"
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// SpanLevel maps a span's status code to the level its event is written at.
//
// The same mapping must be used for the enablement pre-check and for the
// written event, otherwise the exporter would emit events no session asked for
// (or skip events a session did ask for).
func SpanLevel(c codes.Code) Level {
	switch c {
	case codes.Error:
		return LevelError
	case codes.Ok:
		return LevelInfo
	default: // codes.Unset
		return LevelVerbose
	}
}

// Keywords carries the category bitmask and level for each class of event an
// exporter can emit. Keywords are fixed per exporter instance; the span level
// is only a ceiling, since the actual level is derived per span via
// [SpanLevel].
//
// Span events and links have their own class so a session can subscribe to
// span boundaries without paying for the (usually far noisier) event and link
// traffic.
type Keywords struct {
	// Span is the keyword mask for span events.
	Span uint64
	// Event is the keyword mask for span sub-events.
	Event uint64
	// Links is the keyword mask for span links.
	Links uint64

	// EventLevel is the level for span sub-events.
	EventLevel Level
	// LinksLevel is the level for span links.
	LinksLevel Level
}

// DefaultKeywords returns the keyword and level assignment used when the
// exporter is not configured otherwise: spans on keyword 0x1, span events on
// 0x10 at verbose, links on 0x100 at verbose.
func DefaultKeywords() Keywords {
	return Keywords{
		Span:       0x1,
		Event:      0x10,
		Links:      0x100,
		EventLevel: LevelVerbose,
		LinksLevel: LevelVerbose,
	}
}

// Package eventheader writes self-describing events through the Linux
// user_events tracepoint mechanism, following the EventHeader convention used
// by the LinuxTracepoints decoders.
//
// A [Provider] owns a handle to the user_events_data file and one registered
// tracepoint per (level, keyword) pair, named "<provider>_L<level>K<keyword>".
// Each tracepoint registration hands the kernel the address of an enable word
// that the kernel updates whenever a tracing session attaches or detaches, so
// [EventSet.Enabled] is a single atomic load.
//
// An event record is:
//
//	u8  eventheader_flags   (pointer64 | little-endian | extension)
//	u8  version
//	u16 id                  (0: dynamic events carry their schema inline)
//	u16 tag
//	u8  opcode
//	u8  level
//	extension block(s)      (u16 size, u16 kind | chain flag, data)
//	field payload
//
// The metadata extension carries the event name and, per field, the field
// name, encoding, optional format, and optional tag; the activity extension
// carries a 16 byte activity ID, or 32 bytes when a related (parent) activity
// ID is present. Because names and types travel with every record, consumers
// need no registration step beyond attaching to the tracepoint.
package eventheader

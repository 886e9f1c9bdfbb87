//go:build linux

package eventheader

import (
	"encoding/binary"
	"math"
)

const (
	// MaxSequenceLen is the largest element count a sequence field can carry;
	// longer sequences are truncated, since the count is a u16 prefix.
	MaxSequenceLen = math.MaxUint16
	// MaxStructFields is the largest field count a struct block can declare;
	// larger counts saturate, since the count shares the 7-bit format space.
	MaxStructFields = 127
)

// EventBuilder assembles one event record: field metadata and payload grow in
// step as fields are added, and Write prepends the header and extension
// framing. A builder is reused across events via Reset; it is not safe for
// concurrent use.
type EventBuilder struct {
	name   string
	tag    uint16
	opcode Opcode

	meta []byte // metadata extension body after the event name
	data []byte // field payload
}

func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		meta: make([]byte, 0, 256),
		data: make([]byte, 0, 256),
	}
}

// Reset clears the builder and starts a new event with the given name and
// event tag. The name travels in the metadata extension, so it may differ per
// event within one event set.
func (eb *EventBuilder) Reset(name string, tag uint16) {
	eb.name = name
	eb.tag = tag
	eb.opcode = OpcodeInfo
	eb.meta = eb.meta[:0]
	eb.data = eb.data[:0]
}

// Opcode sets the event's opcode. Reset leaves it as [OpcodeInfo].
func (eb *EventBuilder) Opcode(op Opcode) {
	eb.opcode = op
}

// addMeta appends one field declaration: name, encoding, and (when needed)
// format and tag, chained via the high bits.
func (eb *EventBuilder) addMeta(name string, enc FieldEncoding, format FieldFormat, tag uint16) {
	eb.meta = append(eb.meta, name...)
	eb.meta = append(eb.meta, 0)

	if format == FormatDefault && tag == 0 {
		eb.meta = append(eb.meta, byte(enc))
		return
	}
	eb.meta = append(eb.meta, byte(enc|encodingChainFlag))
	if tag == 0 {
		eb.meta = append(eb.meta, byte(format))
		return
	}
	eb.meta = append(eb.meta, byte(format|formatChainFlag))
	eb.meta = binary.LittleEndian.AppendUint16(eb.meta, tag)
}

func (eb *EventBuilder) AddUint8(name string, v uint8, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue8, format, tag)
	eb.data = append(eb.data, v)
}

func (eb *EventBuilder) AddUint16(name string, v uint16, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue16, format, tag)
	eb.data = binary.LittleEndian.AppendUint16(eb.data, v)
}

func (eb *EventBuilder) AddUint32(name string, v uint32, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue32, format, tag)
	eb.data = binary.LittleEndian.AppendUint32(eb.data, v)
}

func (eb *EventBuilder) AddUint64(name string, v uint64, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue64, format, tag)
	eb.data = binary.LittleEndian.AppendUint64(eb.data, v)
}

func (eb *EventBuilder) AddInt64(name string, v int64, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue64, format, tag)
	eb.data = binary.LittleEndian.AppendUint64(eb.data, uint64(v))
}

func (eb *EventBuilder) AddFloat64(name string, v float64, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue64, format, tag)
	eb.data = binary.LittleEndian.AppendUint64(eb.data, math.Float64bits(v))
}

func (eb *EventBuilder) AddBool(name string, v bool, tag uint16) {
	var b uint8
	if v {
		b = 1
	}
	eb.AddUint8(name, b, FormatBoolean, tag)
}

// AddString adds a UTF-8 string as a length-prefixed char8 field.
func (eb *EventBuilder) AddString(name, v string, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingStringLength16Char8, format, tag)
	eb.appendString(v)
}

// AddUUID adds a 16 byte identifier as a value128 field.
func (eb *EventBuilder) AddUUID(name string, v [16]byte, tag uint16) {
	eb.addMeta(name, EncodingValue128, FormatUUID, tag)
	eb.data = append(eb.data, v[:]...)
}

func (eb *EventBuilder) AddBoolSequence(name string, vs []bool, tag uint16) {
	eb.addMeta(name, EncodingValue8|EncodingVArrayFlag, FormatBoolean, tag)
	vs = vs[:capSequence(len(vs))]
	eb.data = binary.LittleEndian.AppendUint16(eb.data, uint16(len(vs)))
	for _, v := range vs {
		var b uint8
		if v {
			b = 1
		}
		eb.data = append(eb.data, b)
	}
}

func (eb *EventBuilder) AddInt64Sequence(name string, vs []int64, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingValue64|EncodingVArrayFlag, format, tag)
	vs = vs[:capSequence(len(vs))]
	eb.data = binary.LittleEndian.AppendUint16(eb.data, uint16(len(vs)))
	for _, v := range vs {
		eb.data = binary.LittleEndian.AppendUint64(eb.data, uint64(v))
	}
}

func (eb *EventBuilder) AddFloat64Sequence(name string, vs []float64, tag uint16) {
	eb.addMeta(name, EncodingValue64|EncodingVArrayFlag, FormatFloat, tag)
	vs = vs[:capSequence(len(vs))]
	eb.data = binary.LittleEndian.AppendUint16(eb.data, uint16(len(vs)))
	for _, v := range vs {
		eb.data = binary.LittleEndian.AppendUint64(eb.data, math.Float64bits(v))
	}
}

func (eb *EventBuilder) AddStringSequence(name string, vs []string, format FieldFormat, tag uint16) {
	eb.addMeta(name, EncodingStringLength16Char8|EncodingVArrayFlag, format, tag)
	vs = vs[:capSequence(len(vs))]
	eb.data = binary.LittleEndian.AppendUint16(eb.data, uint16(len(vs)))
	for _, v := range vs {
		eb.appendString(v)
	}
}

// AddStruct declares a nested block covering the next fieldCount fields.
// Counts above [MaxStructFields] saturate to it.
func (eb *EventBuilder) AddStruct(name string, fieldCount int, tag uint16) {
	if fieldCount > MaxStructFields {
		fieldCount = MaxStructFields
	}
	// the struct's "format" byte carries the field count
	eb.addMeta(name, EncodingStruct, FieldFormat(fieldCount), tag)
}

func (eb *EventBuilder) appendString(v string) {
	if len(v) > MaxSequenceLen {
		v = v[:MaxSequenceLen]
	}
	eb.data = binary.LittleEndian.AppendUint16(eb.data, uint16(len(v)))
	eb.data = append(eb.data, v...)
}

func capSequence(n int) int {
	if n > MaxSequenceLen {
		return MaxSequenceLen
	}
	return n
}

// Write assembles the record for the event set's level and hands it to the
// tracepoint write path. activityID and relatedID, when non-nil, travel in an
// activity extension; relatedID requires activityID.
//
// The builder's fields are preserved across Write, so one event can be written
// to several event sets.
func (eb *EventBuilder) Write(es *EventSet, activityID, relatedID *[16]byte) error {
	buf := make([]byte, 0, 16+len(eb.name)+len(eb.meta)+len(eb.data)+40)
	return es.prov.write(es, eb.appendRecord(buf, es, activityID, relatedID))
}

// appendRecord appends the wire form of the event: header, extensions, payload.
func (eb *EventBuilder) appendRecord(buf []byte, es *EventSet, activityID, relatedID *[16]byte) []byte {
	buf = append(buf,
		flagPointer64|flagLittleEndian|flagExtension, // eventheader_flags
		0,    // version
		0, 0, // id: dynamic
	)
	buf = binary.LittleEndian.AppendUint16(buf, eb.tag)
	buf = append(buf, byte(eb.opcode), byte(es.level))

	metaKind := extKindMetadata
	if activityID != nil {
		metaKind |= extKindChain
	}
	metaLen := len(eb.name) + 1 + len(eb.meta)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(metaLen))
	buf = binary.LittleEndian.AppendUint16(buf, metaKind)
	buf = append(buf, eb.name...)
	buf = append(buf, 0)
	buf = append(buf, eb.meta...)

	if activityID != nil {
		idLen := 16
		if relatedID != nil {
			idLen = 32
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(idLen))
		buf = binary.LittleEndian.AppendUint16(buf, extKindActivityID)
		buf = append(buf, activityID[:]...)
		if relatedID != nil {
			buf = append(buf, relatedID[:]...)
		}
	}

	return append(buf, eb.data...)
}

//go:build linux

package eventheader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// cutName splits a NUL-terminated name off the front of meta.
func cutName(meta []byte) (string, []byte, bool) {
	i := bytes.IndexByte(meta, 0)
	if i < 0 {
		return "", nil, false
	}
	return string(meta[:i]), meta[i+1:], true
}

// DecodedEvent is one record recovered purely from its own bytes, the way a
// trace consumer sees it. Used by tests and diagnostic tooling; the hot path
// never decodes.
type DecodedEvent struct {
	Name       string
	Level      Level
	Opcode     Opcode
	Tag        uint16
	ActivityID *[16]byte
	RelatedID  *[16]byte
	Fields     []DecodedField
}

// DecodedField is one field of a [DecodedEvent]. Scalar values decode to the
// unsigned representation of their encoding width (callers reinterpret signed
// and float values via the Format); sequences decode to []any, structs carry
// their field count with no value of their own.
type DecodedField struct {
	Name   string
	Format FieldFormat
	Tag    uint16
	Struct int
	Value  any
}

// DecodeRecord parses a record written by [EventBuilder.Write]: header,
// extension chain, then payload interpreted per the metadata declarations.
func DecodeRecord(rec []byte) (DecodedEvent, error) {
	var ev DecodedEvent
	if len(rec) < 8 {
		return ev, fmt.Errorf("record too short: %d bytes", len(rec))
	}
	flags := rec[0]
	if flags&flagLittleEndian == 0 || flags&flagExtension == 0 {
		return ev, fmt.Errorf("unexpected header flags %#x", flags)
	}
	ev.Tag = binary.LittleEndian.Uint16(rec[4:6])
	ev.Opcode = Opcode(rec[6])
	ev.Level = Level(rec[7])
	pos := 8

	var meta []byte
	for chained := true; chained; {
		if pos+4 > len(rec) {
			return ev, fmt.Errorf("truncated extension header at %d", pos)
		}
		size := int(binary.LittleEndian.Uint16(rec[pos : pos+2]))
		kind := binary.LittleEndian.Uint16(rec[pos+2 : pos+4])
		if pos+4+size > len(rec) {
			return ev, fmt.Errorf("truncated extension body at %d", pos)
		}
		body := rec[pos+4 : pos+4+size]
		pos += 4 + size
		chained = kind&extKindChain != 0

		switch kind &^ extKindChain {
		case extKindMetadata:
			meta = body
		case extKindActivityID:
			var a [16]byte
			copy(a[:], body)
			ev.ActivityID = &a
			if size == 32 {
				var r [16]byte
				copy(r[:], body[16:])
				ev.RelatedID = &r
			}
		default:
			return ev, fmt.Errorf("unknown extension kind %#x", kind)
		}
	}

	if meta == nil {
		return ev, errors.New("missing metadata extension")
	}
	name, meta, ok := cutName(meta)
	if !ok {
		return ev, errors.New("unterminated event name")
	}
	ev.Name = name

	data := rec[pos:]
	for len(meta) > 0 {
		f := DecodedField{}
		if f.Name, meta, ok = cutName(meta); !ok {
			return ev, errors.New("unterminated field name")
		}

		if len(meta) < 1 {
			return ev, fmt.Errorf("field %s: missing encoding", f.Name)
		}
		enc := FieldEncoding(meta[0])
		meta = meta[1:]
		if enc&encodingChainFlag != 0 {
			if len(meta) < 1 {
				return ev, fmt.Errorf("field %s: missing format", f.Name)
			}
			format := FieldFormat(meta[0])
			meta = meta[1:]
			if format&formatChainFlag != 0 {
				if len(meta) < 2 {
					return ev, fmt.Errorf("field %s: missing tag", f.Name)
				}
				f.Tag = binary.LittleEndian.Uint16(meta)
				meta = meta[2:]
			}
			f.Format = format & formatValueMask
		}

		base := enc & encodingValueMask
		if base == EncodingStruct {
			f.Struct = int(f.Format)
			f.Format = 0
			ev.Fields = append(ev.Fields, f)
			continue
		}

		n := 1
		if enc&EncodingVArrayFlag != 0 {
			if len(data) < 2 {
				return ev, fmt.Errorf("field %s: truncated element count", f.Name)
			}
			n = int(binary.LittleEndian.Uint16(data))
			data = data[2:]
		}
		var vals []any
		for j := 0; j < n; j++ {
			var v any
			var w int
			switch base {
			case EncodingValue8:
				w = 1
			case EncodingValue16:
				w = 2
			case EncodingValue32:
				w = 4
			case EncodingValue64:
				w = 8
			case EncodingValue128:
				w = 16
			case EncodingStringLength16Char8:
				if len(data) < 2 {
					return ev, fmt.Errorf("field %s: truncated string length", f.Name)
				}
				w = 2 + int(binary.LittleEndian.Uint16(data))
			default:
				return ev, fmt.Errorf("field %s: unhandled encoding %#x", f.Name, enc)
			}
			if len(data) < w {
				return ev, fmt.Errorf("field %s: truncated payload", f.Name)
			}
			switch base {
			case EncodingValue8:
				v = data[0]
			case EncodingValue16:
				v = binary.LittleEndian.Uint16(data)
			case EncodingValue32:
				v = binary.LittleEndian.Uint32(data)
			case EncodingValue64:
				v = binary.LittleEndian.Uint64(data)
			case EncodingValue128:
				var a [16]byte
				copy(a[:], data)
				v = a
			case EncodingStringLength16Char8:
				v = string(data[2:w])
			}
			data = data[w:]
			vals = append(vals, v)
		}
		if enc&EncodingVArrayFlag != 0 {
			f.Value = vals
		} else {
			f.Value = vals[0]
		}
		ev.Fields = append(ev.Fields, f)
	}

	if len(data) != 0 {
		return ev, fmt.Errorf("%d trailing payload bytes", len(data))
	}
	return ev, nil
}

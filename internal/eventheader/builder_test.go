//go:build linux

package eventheader

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func decodeRecord(t *testing.T, rec []byte) DecodedEvent {
	t.Helper()
	ev, err := DecodeRecord(rec)
	if err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return ev
}

func captureProvider(t *testing.T, enabled bool) (*Provider, *[][]byte) {
	t.Helper()
	records := &[][]byte{}
	p := NewUnregisteredProvider("TestProvider", enabled, func(rec []byte) error {
		c := make([]byte, len(rec))
		copy(c, rec)
		*records = append(*records, c)
		return nil
	})
	return p, records
}

func TestRoundTripFields(t *testing.T) {
	p, records := captureProvider(t, true)
	es, err := p.RegisterSet(LevelInfo, 0x1)
	if err != nil {
		t.Fatal(err)
	}

	eb := NewEventBuilder()
	eb.Reset("allTypes", 42)
	eb.Opcode(OpcodeActivityStop)
	eb.AddBool("enabled", true, 0)
	eb.AddUint8("small", 250, FormatUnsignedInt, 0)
	eb.AddUint16("medium", 60000, FormatUnsignedInt, 0)
	eb.AddUint32("large", 4000000000, FormatHexInt, 0)
	eb.AddInt64("count", -12345, FormatSignedInt, 7)
	eb.AddUint64("when", 1700000000, FormatTime, 0)
	eb.AddFloat64("ratio", 0.25, FormatFloat, 0)
	eb.AddString("name", "GET /users", FormatDefault, 0)
	eb.AddBoolSequence("mask", []bool{true, false, true}, 0)
	eb.AddInt64Sequence("ints", []int64{1, -2, 3}, FormatSignedInt, 0)
	eb.AddFloat64Sequence("floats", []float64{1.5, -0.5}, 0)
	eb.AddStringSequence("strings", []string{"a", "bc", ""}, FormatDefault, 0)
	if err := eb.Write(es, nil, nil); err != nil {
		t.Fatal(err)
	}

	if len(*records) != 1 {
		t.Fatalf("got %d records, wanted 1", len(*records))
	}
	ev := decodeRecord(t, (*records)[0])

	want := DecodedEvent{
		Name:   "allTypes",
		Level:  LevelInfo,
		Opcode: OpcodeActivityStop,
		Tag:    42,
		Fields: []DecodedField{
			{Name: "enabled", Format: FormatBoolean, Value: uint8(1)},
			{Name: "small", Format: FormatUnsignedInt, Value: uint8(250)},
			{Name: "medium", Format: FormatUnsignedInt, Value: uint16(60000)},
			{Name: "large", Format: FormatHexInt, Value: uint32(4000000000)},
			{Name: "count", Format: FormatSignedInt, Tag: 7, Value: uint64(math.MaxUint64 - 12345 + 1)},
			{Name: "when", Format: FormatTime, Value: uint64(1700000000)},
			{Name: "ratio", Format: FormatFloat, Value: math.Float64bits(0.25)},
			{Name: "name", Value: "GET /users"},
			{Name: "mask", Format: FormatBoolean, Value: []any{uint8(1), uint8(0), uint8(1)}},
			{Name: "ints", Format: FormatSignedInt, Value: []any{uint64(1), uint64(math.MaxUint64 - 1), uint64(3)}},
			{Name: "floats", Format: FormatFloat, Value: []any{math.Float64bits(1.5), math.Float64bits(-0.5)}},
			{Name: "strings", Value: []any{"a", "bc", ""}},
		},
	}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Fatalf("decoded event mismatch (-want +got):\n%s", diff)
	}
}

func TestActivityIDs(t *testing.T) {
	p, records := captureProvider(t, true)
	es, err := p.RegisterSet(LevelVerbose, 0x10)
	if err != nil {
		t.Fatal(err)
	}

	act := [16]byte{1, 2, 3, 4}
	rel := [16]byte{5, 6, 7, 8}

	eb := NewEventBuilder()
	eb.Reset("withActivity", 0)
	eb.Opcode(OpcodeActivityStart)
	eb.AddString("x", "y", FormatDefault, 0)
	if err := eb.Write(es, &act, &rel); err != nil {
		t.Fatal(err)
	}

	ev := decodeRecord(t, (*records)[0])
	if ev.ActivityID == nil || *ev.ActivityID != act {
		t.Errorf("activity ID not preserved: %v", ev.ActivityID)
	}
	if ev.RelatedID == nil || *ev.RelatedID != rel {
		t.Errorf("related activity ID not preserved: %v", ev.RelatedID)
	}
	if ev.Opcode != OpcodeActivityStart {
		t.Errorf("got opcode %d, wanted start", ev.Opcode)
	}
	if ev.Level != LevelVerbose {
		t.Errorf("got level %d, wanted verbose", ev.Level)
	}
}

func TestSequenceTruncation(t *testing.T) {
	p, records := captureProvider(t, true)
	es, err := p.RegisterSet(LevelInfo, 0x1)
	if err != nil {
		t.Fatal(err)
	}

	long := make([]int64, MaxSequenceLen+300)
	for i := range long {
		long[i] = int64(i)
	}

	eb := NewEventBuilder()
	eb.Reset("longSeq", 0)
	eb.AddInt64Sequence("vals", long, FormatSignedInt, 0)
	if err := eb.Write(es, nil, nil); err != nil {
		t.Fatal(err)
	}

	ev := decodeRecord(t, (*records)[0])
	vals := ev.Fields[0].Value.([]any)
	if len(vals) != MaxSequenceLen {
		t.Fatalf("got %d elements, wanted %d", len(vals), MaxSequenceLen)
	}
	if vals[MaxSequenceLen-1] != uint64(MaxSequenceLen-1) {
		t.Errorf("truncation kept wrong elements: last = %v", vals[MaxSequenceLen-1])
	}
}

func TestStructFieldCountSaturates(t *testing.T) {
	eb := NewEventBuilder()
	eb.Reset("structs", 0)
	eb.AddStruct("block", 300, 0)

	// the struct declaration is the last metadata entry; its count byte is at
	// the end of the chained encoding/format pair
	format := eb.meta[len(eb.meta)-1]
	if FieldFormat(format) != FieldFormat(MaxStructFields) {
		t.Fatalf("got field count %d, wanted %d", format, MaxStructFields)
	}
}

func TestEventSetEnabled(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		t.Run(fmt.Sprintf("enabled=%t", enabled), func(t *testing.T) {
			p, _ := captureProvider(t, enabled)
			es, err := p.RegisterSet(LevelInfo, 0x1)
			if err != nil {
				t.Fatal(err)
			}
			if es.Enabled() != enabled {
				t.Fatalf("Enabled() = %t, wanted %t", es.Enabled(), enabled)
			}
		})
	}
}

func TestEventName(t *testing.T) {
	p := NewUnregisteredProvider("MyProvider", false, nil)
	if got, want := p.eventName(LevelInfo, 0x1), "MyProvider_L4K1"; got != want {
		t.Errorf("got %s, wanted %s", got, want)
	}
	if got, want := p.eventName(LevelVerbose, 0x100), "MyProvider_L5K100"; got != want {
		t.Errorf("got %s, wanted %s", got, want)
	}

	p = NewUnregisteredProvider("MyProvider", false, nil)
	p.group = "mygroup"
	if got, want := p.eventName(LevelInfo, 0x1), "MyProvider_L4K1Gmygroup"; got != want {
		t.Errorf("got %s, wanted %s", got, want)
	}
}

func TestRegisterSetReuse(t *testing.T) {
	p, _ := captureProvider(t, true)
	a, err := p.RegisterSet(LevelInfo, 0x1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.RegisterSet(LevelInfo, 0x1)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("registering the same (level, keyword) twice produced distinct sets")
	}
	if p.FindSet(LevelInfo, 0x1) != a {
		t.Error("FindSet did not return the registered set")
	}
	if p.FindSet(LevelError, 0x1) != nil {
		t.Error("FindSet returned a set for an unregistered pair")
	}
}

// Decoding must fail cleanly on malformed input, never index out of range.
func TestDecodeTruncatedRecord(t *testing.T) {
	p, records := captureProvider(t, true)
	es, err := p.RegisterSet(LevelInfo, 0x1)
	if err != nil {
		t.Fatal(err)
	}

	eb := NewEventBuilder()
	eb.Reset("truncMe", 7)
	eb.AddString("name", "GET /users", FormatDefault, 0)
	eb.AddInt64Sequence("ints", []int64{1, 2, 3}, FormatSignedInt, 0)
	var act [16]byte
	if err := eb.Write(es, &act, nil); err != nil {
		t.Fatal(err)
	}

	rec := (*records)[0]
	for n := 0; n < len(rec); n++ {
		if _, err := DecodeRecord(rec[:n]); err == nil {
			t.Errorf("decoding %d of %d bytes succeeded", n, len(rec))
		}
	}
}

func TestDecodeMissingMetadata(t *testing.T) {
	// header plus a lone activity-ID extension, no metadata extension
	rec := make([]byte, 8, 8+4+16)
	rec[0] = flagLittleEndian | flagExtension
	rec = append(rec, 16, 0) // extension size
	rec = append(rec, byte(extKindActivityID), byte(extKindActivityID>>8))
	rec = append(rec, make([]byte, 16)...)

	if _, err := DecodeRecord(rec); err == nil {
		t.Fatal("decoding a record with no metadata extension succeeded")
	}
}

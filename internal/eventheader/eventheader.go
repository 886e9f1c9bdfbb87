//go:build linux

package eventheader

// Level is the event severity on the 0-5 scale shared with ETW. A session
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

// Opcode describes an event's role in an activity, using the Windows
// TraceLogging opcode values.
type Opcode uint8

const (
	OpcodeInfo          Opcode = 0
	OpcodeActivityStart Opcode = 1
	OpcodeActivityStop  Opcode = 2
)

// header flags
const (
	flagPointer64    uint8 = 0x01
	flagLittleEndian uint8 = 0x02
	flagExtension    uint8 = 0x04
)

// extension kinds; the high bit chains to a following extension.
const (
	extKindMetadata   uint16 = 0x0001
	extKindActivityID uint16 = 0x0002
	extKindChain      uint16 = 0x8000
)

// FieldEncoding is a field's in-memory representation: how many bytes to
// consume from the payload. The low 5 bits are the base encoding; flag bits
// mark arrays and chain to a [FieldFormat] byte.
type FieldEncoding uint8

const (
	EncodingInvalid             FieldEncoding = 0
	EncodingStruct              FieldEncoding = 1
	EncodingValue8              FieldEncoding = 2
	EncodingValue16             FieldEncoding = 3
	EncodingValue32             FieldEncoding = 4
	EncodingValue64             FieldEncoding = 5
	EncodingValue128            FieldEncoding = 6
	EncodingZStringChar8        FieldEncoding = 7
	EncodingStringLength16Char8 FieldEncoding = 10

	// EncodingVArrayFlag marks a variable-length array: a u16 element count
	// prefixes the elements in the payload.
	EncodingVArrayFlag FieldEncoding = 0x40
	// encodingChainFlag marks that a FieldFormat byte follows in the metadata.
	encodingChainFlag FieldEncoding = 0x80

	encodingValueMask FieldEncoding = 0x1f
)

// FieldFormat is a field's semantic interpretation, refining its encoding.
type FieldFormat uint8

const (
	FormatDefault     FieldFormat = 0
	FormatUnsignedInt FieldFormat = 1
	FormatSignedInt   FieldFormat = 2
	FormatHexInt      FieldFormat = 3
	FormatErrno       FieldFormat = 4
	FormatPid         FieldFormat = 5
	FormatTime        FieldFormat = 6
	FormatBoolean     FieldFormat = 7
	FormatFloat       FieldFormat = 8
	FormatHexBytes    FieldFormat = 9
	FormatString8     FieldFormat = 10
	FormatStringUtf   FieldFormat = 11
	FormatStringJSON  FieldFormat = 14
	FormatUUID        FieldFormat = 15

	// formatChainFlag marks that a u16 field tag follows in the metadata.
	formatChainFlag FieldFormat = 0x80

	formatValueMask FieldFormat = 0x7f
)

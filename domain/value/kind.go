package value

import "fmt"

// Kind is the type tag of a Value. The numbering follows the host's
// tagged-variant type word so values can be exchanged without translation.
type Kind uint16

// Value kinds.
const (
	KindNone    Kind = 0x0000
	KindNum     Kind = 0x0001
	KindStr     Kind = 0x0002
	KindBool    Kind = 0x0004
	KindRef     Kind = 0x0008
	KindErr     Kind = 0x0010
	KindMulti   Kind = 0x0040
	KindMissing Kind = 0x0080
	KindNil     Kind = 0x0100
	KindSRef    Kind = 0x0400
	KindInt     Kind = 0x0800
	KindBigData Kind = KindStr | KindInt
)

// Flag is an ownership bit stored alongside the kind in the type word.
type Flag uint16

const (
	// FlagHostFree marks a value whose buffers belong to the host.
	FlagHostFree Flag = 0x1000
	// FlagAddinFree asks the host to hand the value back through the free
	// callback once it has consumed it.
	FlagAddinFree Flag = 0x4000

	flagMask = uint16(FlagHostFree | FlagAddinFree)
)

var kindNames = map[Kind]string{
	KindNone:    "none",
	KindNum:     "num",
	KindStr:     "str",
	KindBool:    "bool",
	KindRef:     "ref",
	KindErr:     "err",
	KindMulti:   "multi",
	KindMissing: "missing",
	KindNil:     "nil",
	KindSRef:    "sref",
	KindInt:     "int",
	KindBigData: "bigdata",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(0x%04x)", uint16(k))
}

// ErrorCode is the payload of a KindErr value.
type ErrorCode uint16

// Host error codes.
const (
	ErrNull        ErrorCode = 0
	ErrDiv0        ErrorCode = 7
	ErrValue       ErrorCode = 15
	ErrRef         ErrorCode = 23
	ErrName        ErrorCode = 29
	ErrNum         ErrorCode = 36
	ErrNA          ErrorCode = 42
	ErrGettingData ErrorCode = 43
)

var errorCodeText = map[ErrorCode]string{
	ErrNull:        "#NULL!",
	ErrDiv0:        "#DIV/0!",
	ErrValue:       "#VALUE!",
	ErrRef:         "#REF!",
	ErrName:        "#NAME?",
	ErrNum:         "#NUM!",
	ErrNA:          "#N/A",
	ErrGettingData: "#GETTING_DATA",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeText[c]; ok {
		return s
	}
	return fmt.Sprintf("#ERR(%d)", uint16(c))
}

// Valid reports whether c is one of the host error codes.
func (c ErrorCode) Valid() bool {
	_, ok := errorCodeText[c]
	return ok
}

// Package cborwire encodes tagged values as canonical CBOR, the payload
// format of the WebAssembly bridge.
package cborwire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/xllconnector/xll-sdk/go/domain/value"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cborwire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		MaxNestedLevels:  16,
		MaxArrayElements: value.MaxRows,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cborwire: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// wireValue is the encoded form of a value.Value. Keys are small integers
// so that each cell costs a few bytes. Only the payload of Kind is set.
type wireValue struct {
	Kind  uint16      `cbor:"1,keyasint"`
	Num   float64     `cbor:"2,keyasint,omitempty"`
	Int   int32       `cbor:"3,keyasint,omitempty"`
	Bool  bool        `cbor:"4,keyasint,omitempty"`
	Err   uint16      `cbor:"5,keyasint,omitempty"`
	Str   string      `cbor:"6,keyasint,omitempty"`
	Rows  int32       `cbor:"7,keyasint,omitempty"`
	Cols  int32       `cbor:"8,keyasint,omitempty"`
	Elems []wireValue `cbor:"9,keyasint,omitempty"`
	Sheet uint64      `cbor:"10,keyasint,omitempty"`
	Rects []wireRect  `cbor:"11,keyasint,omitempty"`
	Data  []byte      `cbor:"12,keyasint,omitempty"`
}

// wireRect encodes as a four element array.
type wireRect struct {
	_        struct{} `cbor:",toarray"`
	RowFirst int32
	RowLast  int32
	ColFirst int32
	ColLast  int32
}

func toWireRect(r value.Rect) wireRect {
	return wireRect{RowFirst: r.RowFirst, RowLast: r.RowLast, ColFirst: r.ColFirst, ColLast: r.ColLast}
}

func (r wireRect) rect() value.Rect {
	return value.Rect{RowFirst: r.RowFirst, RowLast: r.RowLast, ColFirst: r.ColFirst, ColLast: r.ColLast}
}

// Marshal encodes v. Ownership flags are not part of the encoding.
func Marshal(v *value.Value) ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(w)
}

// MarshalArgs encodes an argument list as a CBOR array.
func MarshalArgs(args []value.Value) ([]byte, error) {
	ws := make([]wireValue, len(args))
	for i := range args {
		w, err := toWire(&args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		ws[i] = w
	}
	return encMode.Marshal(ws)
}

func toWire(v *value.Value) (wireValue, error) {
	w := wireValue{Kind: uint16(v.Kind())}
	switch v.Kind() {
	case value.KindNum:
		w.Num, _ = v.AsNum()
	case value.KindInt:
		w.Int, _ = v.AsInt()
	case value.KindBool:
		w.Bool, _ = v.AsBool()
	case value.KindErr:
		code, _ := v.AsErr()
		w.Err = uint16(code)
	case value.KindStr:
		w.Str, _ = v.AsString()
	case value.KindMulti:
		rows, cols := v.Dims()
		w.Rows, w.Cols = int32(rows), int32(cols) //nolint:gosec // G115: dimensions are bounded by value.MaxRows and value.MaxCols
		elems := v.Elems()
		w.Elems = make([]wireValue, len(elems))
		for i := range elems {
			if elems[i].Kind() == value.KindMulti {
				return wireValue{}, fmt.Errorf("cborwire: nested array at cell %d", i)
			}
			ew, err := toWire(&elems[i])
			if err != nil {
				return wireValue{}, err
			}
			w.Elems[i] = ew
		}
	case value.KindRef:
		sheet, rects, _ := v.AsRef()
		w.Sheet = sheet
		w.Rects = make([]wireRect, len(rects))
		for i, r := range rects {
			w.Rects[i] = toWireRect(r)
		}
	case value.KindSRef:
		r, _ := v.AsSRef()
		w.Rects = []wireRect{toWireRect(r)}
	case value.KindBigData:
		w.Data, _ = v.AsBigData()
	case value.KindNone, value.KindMissing, value.KindNil:
	default:
		return wireValue{}, fmt.Errorf("cborwire: cannot encode kind %s", v.Kind())
	}
	return w, nil
}

// Unmarshal decodes a value allocated through eng. The caller owns the
// result and releases it through the same engine.
func Unmarshal(eng *value.Engine, data []byte) (value.Value, error) {
	var w wireValue
	if err := decMode.Unmarshal(data, &w); err != nil {
		return value.Value{}, fmt.Errorf("cborwire: unmarshal value: %w", err)
	}
	return fromWire(eng, &w, false)
}

// UnmarshalArgs decodes an argument list written by MarshalArgs. On error
// nothing stays allocated.
func UnmarshalArgs(eng *value.Engine, data []byte) ([]value.Value, error) {
	var ws []wireValue
	if err := decMode.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("cborwire: unmarshal arguments: %w", err)
	}
	out := make([]value.Value, 0, len(ws))
	for i := range ws {
		v, err := fromWire(eng, &ws[i], false)
		if err != nil {
			ReleaseAll(eng, out)
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ReleaseAll releases every value of vs.
func ReleaseAll(eng *value.Engine, vs []value.Value) {
	for i := range vs {
		eng.Release(&vs[i])
	}
}

func fromWire(eng *value.Engine, w *wireValue, inArray bool) (value.Value, error) {
	switch value.Kind(w.Kind) {
	case value.KindNone:
		return value.Value{}, nil
	case value.KindNum:
		return value.Num(w.Num), nil
	case value.KindInt:
		return value.Int(w.Int), nil
	case value.KindBool:
		return value.Bool(w.Bool), nil
	case value.KindMissing:
		return value.Missing(), nil
	case value.KindNil:
		return value.Nil(), nil
	case value.KindErr:
		code := value.ErrorCode(w.Err)
		if !code.Valid() {
			return value.Value{}, fmt.Errorf("cborwire: invalid error code %d", w.Err)
		}
		return value.Err(code), nil
	case value.KindStr:
		return eng.NewString(w.Str)
	case value.KindBigData:
		return eng.NewBigData(w.Data)
	case value.KindSRef:
		if len(w.Rects) != 1 {
			return value.Value{}, fmt.Errorf("cborwire: single reference needs one rectangle, got %d", len(w.Rects))
		}
		return value.SRef(w.Rects[0].rect()), nil
	case value.KindRef:
		rects := make([]value.Rect, len(w.Rects))
		for i, r := range w.Rects {
			rects[i] = r.rect()
		}
		return eng.NewRef(w.Sheet, rects...)
	case value.KindMulti:
		if inArray {
			return value.Value{}, fmt.Errorf("cborwire: nested array")
		}
		return multiFromWire(eng, w)
	default:
		return value.Value{}, fmt.Errorf("cborwire: unknown kind 0x%04x", w.Kind)
	}
}

func multiFromWire(eng *value.Engine, w *wireValue) (value.Value, error) {
	if w.Rows < 0 || w.Cols < 0 || int(w.Rows)*int(w.Cols) != len(w.Elems) {
		return value.Value{}, fmt.Errorf("cborwire: array %dx%d with %d cells", w.Rows, w.Cols, len(w.Elems))
	}
	cells := make([]value.Value, 0, len(w.Elems))
	defer func() { ReleaseAll(eng, cells) }()
	for i := range w.Elems {
		c, err := fromWire(eng, &w.Elems[i], true)
		if err != nil {
			return value.Value{}, fmt.Errorf("cell %d: %w", i, err)
		}
		cells = append(cells, c)
	}
	return eng.NewArray(int(w.Rows), int(w.Cols), cells)
}

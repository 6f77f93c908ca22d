// Package signature maps native Go types to the host's type-code alphabet
// and generates registration signature strings.
package signature

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Code is one entry of the host's type-code alphabet.
type Code string

// Type codes.
const (
	CodeNum      Code = "B"  // float64
	CodeInt      Code = "J"  // int32
	CodeBool     Code = "A"  // bool
	CodeWide     Code = "C%" // UTF-16 string
	CodeANSI     Code = "C"  // legacy 8-bit string
	CodeValue    Code = "Q"  // tagged value
	CodeFP       Code = "K%" // floating-point matrix
	CodeNumRef   Code = "E"  // *float64
	CodeBoolRef  Code = "L"  // *bool
	CodeShortRef Code = "M"  // *int16
	CodeIntRef   Code = "N"  // *int32
	CodeUShort   Code = "H"  // uint16
	CodeShort    Code = "I"  // int16
	CodeVoid     Code = ">"  // no return value
	CodeInPlace  Code = "1"  // result returned through argument 1
)

// Attribute suffix markers, always emitted in this order.
const (
	MarkVolatile   = "!"
	MarkThreadSafe = "$"
)

// MaxParams is the host's parameter limit.
const MaxParams = 245

// Use says where a type may appear.
type Use uint8

const (
	UseParam Use = 1 << iota
	UseReturn
	UseInOut
)

type entry struct {
	code Code
	use  Use
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// table is the closed native type to code mapping. Types absent here cannot
// cross the boundary.
var table = map[reflect.Type]entry{
	reflect.TypeOf(float64(0)):             {CodeNum, UseParam | UseReturn},
	reflect.TypeOf(int32(0)):               {CodeInt, UseParam | UseReturn},
	reflect.TypeOf(false):                  {CodeBool, UseParam | UseReturn},
	reflect.TypeOf(""):                     {CodeWide, UseParam | UseReturn},
	reflect.TypeOf(value.ANSI(nil)):        {CodeANSI, UseParam | UseReturn},
	reflect.TypeOf(value.Value{}):          {CodeValue, UseParam | UseReturn},
	reflect.TypeOf((*value.Value)(nil)):    {CodeValue, UseParam | UseInOut},
	reflect.TypeOf(value.Matrix{}):         {CodeValue, UseParam | UseReturn},
	reflect.TypeOf(value.ErrorCode(0)):     {CodeValue, UseReturn},
	reflect.TypeOf((*value.FP)(nil)):       {CodeFP, UseParam | UseInOut},
	reflect.TypeOf((*float64)(nil)):        {CodeNumRef, UseParam | UseInOut},
	reflect.TypeOf((*bool)(nil)):           {CodeBoolRef, UseParam | UseInOut},
	reflect.TypeOf((*int16)(nil)):          {CodeShortRef, UseParam | UseInOut},
	reflect.TypeOf((*int32)(nil)):          {CodeIntRef, UseParam | UseInOut},
	reflect.TypeOf(uint16(0)):              {CodeUShort, UseParam},
	reflect.TypeOf(int16(0)):               {CodeShort, UseParam},
}

// Lookup returns the code of t and where it may be used.
func Lookup(t reflect.Type) (Code, Use, bool) {
	e, ok := table[t]
	return e.code, e.use, ok
}

// Types returns every native type of the table.
func Types() []reflect.Type {
	out := make([]reflect.Type, 0, len(table))
	for t := range table {
		out = append(out, t)
	}
	return out
}

func codeFor(t reflect.Type, use Use) (Code, error) {
	e, ok := table[t]
	if !ok || e.use&use == 0 {
		return "", fmt.Errorf("%w: %s", sdkerrors.ErrUnsupportedType, t)
	}
	return e.code, nil
}

// Generate builds the signature for a native function returning ret (nil
// for none) and taking params. The result is deterministic.
func Generate(ret reflect.Type, params []reflect.Type, attrs entities.Attributes) (string, error) {
	if len(params) > MaxParams {
		return "", fmt.Errorf("%w: %d (max %d)", sdkerrors.ErrTooManyParameters, len(params), MaxParams)
	}

	var sb strings.Builder
	switch {
	case attrs.InPlace:
		if ret != nil {
			return "", fmt.Errorf("in-place function cannot also return %s", ret)
		}
		if len(params) == 0 {
			return "", fmt.Errorf("in-place function needs an argument")
		}
		if _, err := codeFor(params[0], UseInOut); err != nil {
			return "", fmt.Errorf("in-place argument: %w", err)
		}
		sb.WriteString(string(CodeInPlace))
	case ret == nil:
		sb.WriteString(string(CodeVoid))
	default:
		code, err := codeFor(ret, UseReturn)
		if err != nil {
			return "", fmt.Errorf("return: %w", err)
		}
		sb.WriteString(string(code))
	}

	for i, p := range params {
		code, err := codeFor(p, UseParam)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i+1, err)
		}
		sb.WriteString(string(code))
	}

	sb.WriteString(suffix(attrs))
	return sb.String(), nil
}

func suffix(attrs entities.Attributes) string {
	s := ""
	if attrs.Volatile {
		s += MarkVolatile
	}
	if attrs.ThreadSafe {
		s += MarkThreadSafe
	}
	return s
}

// Shape is the analysed form of a native function type.
type Shape struct {
	Return   reflect.Type // nil when the function returns nothing
	Params   []reflect.Type
	HasError bool // the last result is an error
}

// Analyze checks fn against the closed table and splits its results.
// Accepted result lists are (), (R), (error) and (R, error).
func Analyze(fn reflect.Type) (Shape, error) {
	if fn == nil || fn.Kind() != reflect.Func {
		return Shape{}, fmt.Errorf("%w: %v is not a function", sdkerrors.ErrUnsupportedType, fn)
	}
	if fn.IsVariadic() {
		return Shape{}, fmt.Errorf("%w: variadic functions cannot be exported", sdkerrors.ErrUnsupportedType)
	}
	if fn.NumIn() > MaxParams {
		return Shape{}, fmt.Errorf("%w: %d (max %d)", sdkerrors.ErrTooManyParameters, fn.NumIn(), MaxParams)
	}

	var s Shape
	for i := 0; i < fn.NumIn(); i++ {
		p := fn.In(i)
		if _, err := codeFor(p, UseParam); err != nil {
			return Shape{}, fmt.Errorf("argument %d: %w", i+1, err)
		}
		s.Params = append(s.Params, p)
	}

	switch fn.NumOut() {
	case 0:
	case 1:
		if fn.Out(0) == errorType {
			s.HasError = true
		} else {
			s.Return = fn.Out(0)
		}
	case 2:
		if fn.Out(1) != errorType {
			return Shape{}, fmt.Errorf("%w: second result must be error, got %s", sdkerrors.ErrUnsupportedType, fn.Out(1))
		}
		s.Return = fn.Out(0)
		s.HasError = true
	default:
		return Shape{}, fmt.Errorf("%w: too many results (%d)", sdkerrors.ErrUnsupportedType, fn.NumOut())
	}

	if s.Return != nil {
		if _, err := codeFor(s.Return, UseReturn); err != nil {
			return Shape{}, fmt.Errorf("return: %w", err)
		}
	}
	return s, nil
}

// ForWrapper generates the signature registered for a dispatch trampoline.
// Trampolines answer with a tagged value, so the return code is Q unless
// the function returns its result in place.
func ForWrapper(s Shape, attrs entities.Attributes) (string, error) {
	if attrs.InPlace {
		return Generate(nil, s.Params, attrs)
	}
	return Generate(reflect.TypeOf(value.Value{}), s.Params, attrs)
}

// Parsed is a decoded signature string.
type Parsed struct {
	Return     Code
	Params     []Code
	Volatile   bool
	ThreadSafe bool
}

// Parse decodes a signature produced by Generate.
func Parse(sig string) (Parsed, error) {
	var p Parsed
	if strings.HasSuffix(sig, MarkThreadSafe) {
		p.ThreadSafe = true
		sig = strings.TrimSuffix(sig, MarkThreadSafe)
	}
	if strings.HasSuffix(sig, MarkVolatile) {
		p.Volatile = true
		sig = strings.TrimSuffix(sig, MarkVolatile)
	}

	codes, err := splitCodes(sig)
	if err != nil {
		return Parsed{}, err
	}
	if len(codes) == 0 {
		return Parsed{}, fmt.Errorf("empty signature")
	}
	p.Return = codes[0]
	p.Params = codes[1:]
	return p, nil
}

func splitCodes(s string) ([]Code, error) {
	var out []Code
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case 'B', 'J', 'A', 'Q', 'E', 'L', 'M', 'N', 'H', 'I', '>', '1':
			out = append(out, Code(c))
		case 'C', 'K':
			if i+1 < len(s) && s[i+1] == '%' {
				out = append(out, Code(s[i:i+2]))
				i++
			} else if c == 'C' {
				out = append(out, CodeANSI)
			} else {
				return nil, fmt.Errorf("unsupported code %q at %d", c, i)
			}
		default:
			return nil, fmt.Errorf("unsupported code %q at %d", c, i)
		}
	}
	return out, nil
}

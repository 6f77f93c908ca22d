package host

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xllconnector/xll-sdk/go/application/dispatch"
	"github.com/xllconnector/xll-sdk/go/application/retval"
	"github.com/xllconnector/xll-sdk/go/application/signature"
	"github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Call invokes the registered function name with cells as its arguments.
// Omitted trailing arguments are passed as missing values. The result is a
// copy owned by the caller, to be released with Engine().Release.
//
// An argument the host cannot coerce to its parameter type yields #VALUE!
// without calling the function, as the host does.
func (h *Host) Call(ctx context.Context, name string, cells ...value.Value) (value.Value, error) {
	f, proc, ok := h.lookupFunction(name)
	if !ok {
		return value.Value{}, &errors.HostProtocolError{Call: name, Code: errors.RetInvalidFunction}
	}
	if len(cells) > len(f.sig.Params) {
		return value.Value{}, &errors.HostProtocolError{Call: name, Code: errors.RetInvalidCount}
	}

	frame := &frame{eng: h.eng}
	defer frame.release()
	for i, code := range f.sig.Params {
		cell := value.MissingValue
		if i < len(cells) {
			cell = cells[i]
		}
		if err := frame.push(code, &cell); err != nil {
			h.logger.DebugContext(ctx, "host: argument not coercible",
				"function", name,
				"argument", i+1,
				"error", err,
			)
			return value.Err(value.ErrValue), nil
		}
	}

	if f.sig.ThreadSafe {
		id := <-h.pool
		defer func() { h.pool <- id }()
		ctx = retval.WithThread(ctx, id)
	} else {
		h.coordinator.Lock()
		defer h.coordinator.Unlock()
		ctx = retval.WithThread(ctx, retval.CoordinatorThread)
	}

	if h.wizardOpen != nil && h.wizardOpen() {
		ctx = dispatch.WithWizardOpen(ctx)
	}
	res := proc(ctx, frame.args)

	if f.sig.Return == signature.CodeInPlace {
		return frame.result(0)
	}
	if res == nil {
		return value.Nil(), nil
	}

	var out value.Value
	err := h.eng.Copy(&out, res)
	if res.HasFlag(value.FlagAddinFree) {
		if h.free != nil {
			h.free(res)
		} else {
			h.logger.WarnContext(ctx, "host: result flagged for release but no free callback", "function", name)
		}
	}
	if err != nil {
		return value.Value{}, err
	}
	return out, nil
}

// frame holds the wire arguments of one call and the host-owned storage
// behind them.
type frame struct {
	eng   *value.Engine
	args  []any
	owned []*value.Value
}

func (f *frame) push(code signature.Code, cell *value.Value) error {
	arg, err := f.wire(code, cell)
	if err != nil {
		return err
	}
	f.args = append(f.args, arg)
	return nil
}

func (f *frame) wire(code signature.Code, cell *value.Value) (any, error) {
	switch code {
	case signature.CodeNum:
		return toNum(cell)
	case signature.CodeNumRef:
		n, err := toNum(cell)
		return &n, err
	case signature.CodeInt:
		return toInt[int32](cell)
	case signature.CodeIntRef:
		n, err := toInt[int32](cell)
		return &n, err
	case signature.CodeShort:
		return toInt[int16](cell)
	case signature.CodeShortRef:
		n, err := toInt[int16](cell)
		return &n, err
	case signature.CodeUShort:
		return toInt[uint16](cell)
	case signature.CodeBool:
		return toBool(cell)
	case signature.CodeBoolRef:
		b, err := toBool(cell)
		return &b, err
	case signature.CodeWide:
		s, err := toText(cell)
		if err != nil {
			return nil, err
		}
		return value.EncodeWide(s)
	case signature.CodeANSI:
		s, err := toText(cell)
		if err != nil {
			return nil, err
		}
		return value.ToANSI(s)
	case signature.CodeValue:
		v := new(value.Value)
		if err := f.eng.Copy(v, cell); err != nil {
			return nil, err
		}
		f.owned = append(f.owned, v)
		return v, nil
	case signature.CodeFP:
		return toFP(cell)
	default:
		return nil, fmt.Errorf("unsupported parameter code %q", code)
	}
}

// result reads an in-place result back from argument i.
func (f *frame) result(i int) (value.Value, error) {
	switch a := f.args[i].(type) {
	case *float64:
		return value.Num(*a), nil
	case *int32:
		return value.Num(float64(*a)), nil
	case *int16:
		return value.Num(float64(*a)), nil
	case *bool:
		return value.Bool(*a), nil
	case *value.FP:
		cells := make([]value.Value, len(a.Data))
		for k, x := range a.Data {
			cells[k] = value.Num(x)
		}
		return f.eng.NewArray(a.Rows, a.Cols, cells)
	case *value.Value:
		var out value.Value
		if err := f.eng.Copy(&out, a); err != nil {
			return value.Value{}, err
		}
		return out, nil
	default:
		return value.Value{}, fmt.Errorf("argument %d (%T) cannot carry a result", i+1, a)
	}
}

func (f *frame) release() {
	for _, v := range f.owned {
		f.eng.Release(v)
	}
}

func toNum(v *value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindNum:
		n, _ := v.AsNum()
		return n, nil
	case value.KindInt:
		n, _ := v.AsInt()
		return float64(n), nil
	case value.KindBool:
		if b, _ := v.AsBool(); b {
			return 1, nil
		}
		return 0, nil
	case value.KindMissing, value.KindNil:
		return 0, nil
	case value.KindStr:
		s, _ := v.AsString()
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", errors.ErrIncompatibleTag, s)
		}
		return n, nil
	case value.KindMulti:
		if v.Len() > 0 {
			return toNum(v.At(0, 0))
		}
	}
	return 0, fmt.Errorf("%w: %s is not a number", errors.ErrIncompatibleTag, v.Kind())
}

func toInt[T int16 | int32 | uint16](v *value.Value) (T, error) {
	n, err := toNum(v)
	if err != nil {
		return 0, err
	}
	t := math.Trunc(n)
	if float64(T(t)) != t {
		return 0, fmt.Errorf("%w: %v out of range", errors.ErrIncompatibleTag, n)
	}
	return T(t), nil
}

func toBool(v *value.Value) (bool, error) {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case value.KindStr:
		s, _ := v.AsString()
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		}
		return false, fmt.Errorf("%w: %q is not a boolean", errors.ErrIncompatibleTag, s)
	}
	n, err := toNum(v)
	return n != 0, err
}

func toText(v *value.Value) (string, error) {
	switch v.Kind() {
	case value.KindStr:
		s, _ := v.AsString()
		return s, nil
	case value.KindNum:
		n, _ := v.AsNum()
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	case value.KindInt:
		n, _ := v.AsInt()
		return strconv.Itoa(int(n)), nil
	case value.KindBool:
		if b, _ := v.AsBool(); b {
			return "TRUE", nil
		}
		return "FALSE", nil
	case value.KindMissing, value.KindNil:
		return "", nil
	}
	return "", fmt.Errorf("%w: %s is not text", errors.ErrIncompatibleTag, v.Kind())
}

func toFP(v *value.Value) (*value.FP, error) {
	if v.Kind() != value.KindMulti {
		n, err := toNum(v)
		if err != nil {
			return nil, err
		}
		return &value.FP{Rows: 1, Cols: 1, Data: []float64{n}}, nil
	}
	rows, cols := v.Dims()
	fp, err := value.NewFP(rows, cols)
	if err != nil {
		return nil, err
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			n, err := toNum(v.At(r, c))
			if err != nil {
				return nil, err
			}
			fp.Set(r, c, n)
		}
	}
	return fp, nil
}

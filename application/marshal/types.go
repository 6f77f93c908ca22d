package marshal

import (
	"fmt"

	"github.com/xllconnector/xll-sdk/go/application/signature"
	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

func init() {
	register(&Marshaler{
		native: typeOf[float64](), wire: typeOf[float64](), code: signature.CodeNum,
		adapt: passthrough[float64],
		ret: func(_ *value.Engine, dst *value.Value, native any, _ *value.Borrowed) error {
			*dst = value.Num(native.(float64))
			return nil
		},
	})
	register(&Marshaler{
		native: typeOf[int32](), wire: typeOf[int32](), code: signature.CodeInt,
		adapt: passthrough[int32],
		ret: func(_ *value.Engine, dst *value.Value, native any, _ *value.Borrowed) error {
			*dst = value.Int(native.(int32))
			return nil
		},
	})
	register(&Marshaler{
		native: typeOf[bool](), wire: typeOf[bool](), code: signature.CodeBool,
		adapt: passthrough[bool],
		ret: func(_ *value.Engine, dst *value.Value, native any, _ *value.Borrowed) error {
			*dst = value.Bool(native.(bool))
			return nil
		},
	})
	register(&Marshaler{
		native: typeOf[string](), wire: typeOf[value.WideString](), code: signature.CodeWide,
		adapt: adaptWide,
		ret: func(eng *value.Engine, dst *value.Value, native any, _ *value.Borrowed) error {
			v, err := eng.NewString(native.(string))
			if err != nil {
				return err
			}
			*dst = v
			return nil
		},
	})
	register(&Marshaler{
		native: typeOf[value.ANSI](), wire: typeOf[value.ANSI](), code: signature.CodeANSI,
		adapt: adaptANSI,
		ret: func(eng *value.Engine, dst *value.Value, native any, _ *value.Borrowed) error {
			a := native.(value.ANSI)
			if len(a) > value.MaxANSILen {
				return fmt.Errorf("%w: %d bytes (max %d)", sdkerrors.ErrStringTooLong, len(a), value.MaxANSILen)
			}
			v, err := eng.NewANSIString(a)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		},
	})
	register(&Marshaler{
		native: typeOf[value.Value](), wire: typeOf[*value.Value](), code: signature.CodeValue,
		adapt: adaptValueCopy,
		ret: func(eng *value.Engine, dst *value.Value, native any, borrowed *value.Borrowed) error {
			v := native.(value.Value)
			return eng.Take(dst, &v, borrowed)
		},
		discard: func(eng *value.Engine, native any, borrowed *value.Borrowed) {
			v := native.(value.Value)
			eng.Discard(&v, borrowed)
		},
	})
	register(&Marshaler{
		native: typeOf[*value.Value](), wire: typeOf[*value.Value](), code: signature.CodeValue,
		adapt: pointer[value.Value],
		inOut: adaptValueInOut,
	})
	register(&Marshaler{
		native: typeOf[value.Matrix](), wire: typeOf[*value.Value](), code: signature.CodeValue,
		adapt: adaptMatrix,
		ret: func(eng *value.Engine, dst *value.Value, native any, borrowed *value.Borrowed) error {
			return eng.TakeMatrix(dst, native.(value.Matrix), borrowed)
		},
		discard: func(eng *value.Engine, native any, borrowed *value.Borrowed) {
			m := native.(value.Matrix)
			eng.DiscardMatrix(&m, borrowed)
		},
	})
	register(&Marshaler{
		native: typeOf[value.ErrorCode](), code: signature.CodeValue,
		ret: func(_ *value.Engine, dst *value.Value, native any, _ *value.Borrowed) error {
			code := native.(value.ErrorCode)
			if !code.Valid() {
				return fmt.Errorf("%w: unknown error code %d", sdkerrors.ErrIncompatibleTag, uint16(code))
			}
			*dst = value.Err(code)
			return nil
		},
	})
	register(&Marshaler{
		native: typeOf[*value.FP](), wire: typeOf[*value.FP](), code: signature.CodeFP,
		adapt: adaptFP,
		inOut: adaptFP,
	})
	register(&Marshaler{
		native: typeOf[*float64](), wire: typeOf[*float64](), code: signature.CodeNumRef,
		adapt: pointer[float64], inOut: pointer[float64],
	})
	register(&Marshaler{
		native: typeOf[*bool](), wire: typeOf[*bool](), code: signature.CodeBoolRef,
		adapt: pointer[bool], inOut: pointer[bool],
	})
	register(&Marshaler{
		native: typeOf[*int16](), wire: typeOf[*int16](), code: signature.CodeShortRef,
		adapt: pointer[int16], inOut: pointer[int16],
	})
	register(&Marshaler{
		native: typeOf[*int32](), wire: typeOf[*int32](), code: signature.CodeIntRef,
		adapt: pointer[int32], inOut: pointer[int32],
	})
	register(&Marshaler{
		native: typeOf[uint16](), wire: typeOf[uint16](), code: signature.CodeUShort,
		adapt: passthrough[uint16],
	})
	register(&Marshaler{
		native: typeOf[int16](), wire: typeOf[int16](), code: signature.CodeShort,
		adapt: passthrough[int16],
	})
}

func adaptWide(_ *value.Engine, wire any) (Adapter, error) {
	w, err := wireAs[value.WideString](wire)
	if err != nil {
		return nil, err
	}
	if len(w) > value.MaxStringLen {
		return nil, fmt.Errorf("%w: %d code units (max %d)", sdkerrors.ErrStringTooLong, len(w), value.MaxStringLen)
	}
	return borrowed(w.String()), nil
}

func adaptANSI(_ *value.Engine, wire any) (Adapter, error) {
	a, err := wireAs[value.ANSI](wire)
	if err != nil {
		return nil, err
	}
	if len(a) > value.MaxANSILen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", sdkerrors.ErrStringTooLong, len(a), value.MaxANSILen)
	}
	// The native gets its own bytes; the host buffer stays untouched.
	cp := make(value.ANSI, len(a))
	copy(cp, a)
	return borrowed(cp), nil
}

// adaptValueCopy hands the native an owned deep copy of the host's value.
func adaptValueCopy(eng *value.Engine, wire any) (Adapter, error) {
	src, err := ptrAs[value.Value](wire)
	if err != nil {
		return nil, err
	}
	var cp value.Value
	if err := eng.Copy(&cp, src); err != nil {
		return nil, err
	}
	return &adapter{native: cp, release: func() { eng.Release(&cp) }}, nil
}

// adaptValueInOut hands the native a private copy and, on release, replaces
// the host's value with whatever the native left in it.
func adaptValueInOut(eng *value.Engine, wire any) (Adapter, error) {
	slot, err := ptrAs[value.Value](wire)
	if err != nil {
		return nil, err
	}
	work := new(value.Value)
	if err := eng.Copy(work, slot); err != nil {
		return nil, err
	}
	return &adapter{native: work, release: func() {
		eng.Release(slot)
		eng.Move(slot, work)
	}}, nil
}

func adaptMatrix(eng *value.Engine, wire any) (Adapter, error) {
	src, err := ptrAs[value.Value](wire)
	if err != nil {
		return nil, err
	}
	m, err := eng.ToMatrix(src)
	if err != nil {
		return nil, err
	}
	return &adapter{native: m, release: func() { eng.ReleaseMatrix(&m) }}, nil
}

func adaptFP(_ *value.Engine, wire any) (Adapter, error) {
	fp, err := ptrAs[value.FP](wire)
	if err != nil {
		return nil, err
	}
	if err := fp.Validate(); err != nil {
		return nil, err
	}
	return borrowed(fp), nil
}

package value

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
)

func TestAccessors(t *testing.T) {
	n := Num(2.5)
	f, ok := n.AsNum()
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)
	_, ok = n.AsInt()
	assert.False(t, ok)

	i := Int(9)
	w, ok := i.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int32(9), w)

	b := Bool(true)
	bv, ok := b.AsBool()
	assert.True(t, ok && bv)

	e := Err(ErrRef)
	code, ok := e.AsErr()
	assert.True(t, ok)
	assert.Equal(t, ErrRef, code)

	m := Missing()
	assert.True(t, m.IsMissing())
	z := Nil()
	assert.True(t, z.IsNil())

	r := SRef(Rect{RowFirst: 1, RowLast: 2})
	rect, ok := r.AsSRef()
	assert.True(t, ok)
	assert.Equal(t, int32(2), rect.RowLast)

	_, ok = n.AsString()
	assert.False(t, ok)
	_, _, ok = n.AsRef()
	assert.False(t, ok)
	_, ok = n.AsBigData()
	assert.False(t, ok)
	rows, cols := n.Dims()
	assert.Zero(t, rows+cols)
}

func TestTypeWord(t *testing.T) {
	v := Num(1)
	v.SetFlag(FlagAddinFree)
	assert.Equal(t, uint16(0x4001), v.TypeWord())
	assert.True(t, v.HasFlag(FlagAddinFree))
	assert.Equal(t, KindNum, v.Kind())

	kind, flags := FromTypeWord(0x1802)
	assert.Equal(t, KindBigData, kind)
	assert.Equal(t, FlagHostFree, flags)

	v.ClearFlag(FlagAddinFree)
	assert.Zero(t, v.Flags())
}

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrNull, "#NULL!"},
		{ErrDiv0, "#DIV/0!"},
		{ErrValue, "#VALUE!"},
		{ErrRef, "#REF!"},
		{ErrName, "#NAME?"},
		{ErrNum, "#NUM!"},
		{ErrNA, "#N/A"},
		{ErrGettingData, "#GETTING_DATA"},
		{ErrorCode(99), "#ERR(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.String())
		})
	}
	assert.False(t, ErrorCode(99).Valid())
	assert.True(t, ErrNA.Valid())
}

func TestValue_String(t *testing.T) {
	arr, err := NewArray(2, 2, []Value{Num(1), Bool(false), Err(ErrNA), Nil()})
	require.NoError(t, err)
	defer Release(&arr)

	assert.Equal(t, "{2x2;1,FALSE;#N/A,<nil>}", arr.String())
	assert.Equal(t, "<missing>", Missing().String())
	assert.Equal(t, "kind(0x0020)", Kind(0x20).String())
}

func TestEncodeWide(t *testing.T) {
	w, err := EncodeWide("a😀")
	require.NoError(t, err)
	assert.Len(t, w, 3, "surrogate pair counts as two units")
	assert.Equal(t, "a😀", w.String())

	_, err = EncodeWide(strings.Repeat("x", MaxStringLen+1))
	assert.True(t, errors.Is(err, sdkerrors.ErrStringTooLong))
}

func TestANSI(t *testing.T) {
	a, err := ToANSI("café €")
	require.NoError(t, err)
	assert.Equal(t, ANSI{'c', 'a', 'f', 0xE9, ' ', 0x80}, a)

	s, err := a.Widen()
	require.NoError(t, err)
	assert.Equal(t, "café €", s)
	assert.Equal(t, "café €", a.String())

	_, err = ToANSI("日本")
	assert.Error(t, err, "unrepresentable runes must fail, not truncate")

	_, err = ToANSI(strings.Repeat("x", MaxANSILen+1))
	assert.True(t, errors.Is(err, sdkerrors.ErrStringTooLong))
}

func TestNewANSIString(t *testing.T) {
	e, _ := newTestEngine()
	v, err := e.NewANSIString(ANSI{'n', 0xE4})
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "nä", s)
	e.Release(&v)
}

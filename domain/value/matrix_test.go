package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
)

func TestToMatrix(t *testing.T) {
	e, tr := newTestEngine()

	t.Run("missing is empty", func(t *testing.T) {
		v := Missing()
		m, err := e.ToMatrix(&v)
		require.NoError(t, err)
		assert.Equal(t, 0, m.Rows)
		assert.Equal(t, 0, m.Cols)
		assert.Empty(t, m.Cells)
	})

	t.Run("scalar is 1x1", func(t *testing.T) {
		v := Num(5)
		m, err := e.ToMatrix(&v)
		require.NoError(t, err)
		require.Equal(t, 1, m.Rows)
		require.Equal(t, 1, m.Cols)
		n, ok := m.At(0, 0).AsNum()
		require.True(t, ok)
		assert.Equal(t, 5.0, n)
		e.ReleaseMatrix(&m)
	})

	t.Run("string scalar is copied", func(t *testing.T) {
		v, err := e.NewString("cell")
		require.NoError(t, err)
		m, err := e.ToMatrix(&v)
		require.NoError(t, err)
		e.Release(&v)
		s, ok := m.At(0, 0).AsString()
		require.True(t, ok)
		assert.Equal(t, "cell", s)
		e.ReleaseMatrix(&m)
	})

	t.Run("array keeps shape", func(t *testing.T) {
		cells := []Value{Num(1), Num(2), Num(3), Num(4), Num(5), Num(6)}
		v, err := e.NewArray(2, 3, cells)
		require.NoError(t, err)

		m, err := e.ToMatrix(&v)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Rows)
		assert.Equal(t, 3, m.Cols)
		n, _ := m.At(1, 2).AsNum()
		assert.Equal(t, 6.0, n)
		assert.Nil(t, m.At(2, 0))

		back, err := e.FromMatrix(m)
		require.NoError(t, err)
		assert.True(t, Equal(&v, &back))

		e.ReleaseMatrix(&m)
		e.Release(&back)
		e.Release(&v)
	})

	stats := tr.Stats()
	assert.Equal(t, stats.Allocations, stats.Frees)
	assert.Zero(t, stats.InUse)
}

func TestToMatrix_RejectsOversizeBeforeAllocating(t *testing.T) {
	e, tr := newTestEngine()

	v := Value{kind: KindMulti, rows: MaxRows + 1, cols: 1}
	_, err := e.ToMatrix(&v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrMatrixTooLarge))

	v = Value{kind: KindMulti, rows: 1, cols: MaxCols + 1}
	_, err = e.ToMatrix(&v)
	assert.True(t, errors.Is(err, sdkerrors.ErrMatrixTooLarge))

	assert.Zero(t, tr.Stats().Allocations)
}

func TestFP(t *testing.T) {
	m, err := NewFP(2, 2)
	require.NoError(t, err)
	m.Set(1, 0, 3.5)
	assert.Equal(t, 3.5, m.At(1, 0))
	require.NoError(t, m.Validate())

	m.Data = m.Data[:3]
	assert.Error(t, m.Validate())

	_, err = NewFP(MaxRows+1, 1)
	assert.True(t, errors.Is(err, sdkerrors.ErrMatrixTooLarge))
}

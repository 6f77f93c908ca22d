package value

import "fmt"

// Matrix is a native rows x cols view of tagged cells in row-major order.
// A Matrix owns the payloads of its cells; a Matrix produced by
// Engine.ToMatrix holds copies.
type Matrix struct {
	Cells []Value
	Rows  int
	Cols  int
}

// At returns the cell at row r, column c.
func (m Matrix) At(r, c int) *Value {
	if r < 0 || c < 0 || r >= m.Rows || c >= m.Cols {
		return nil
	}
	return &m.Cells[r*m.Cols+c]
}

// Size returns Rows*Cols.
func (m Matrix) Size() int {
	return m.Rows * m.Cols
}

// FP is the host's floating-point matrix passed for the K% code. The host
// owns Data; a function may modify it in place.
type FP struct {
	Data []float64
	Rows int
	Cols int
}

// NewFP returns a zeroed rows x cols matrix.
func NewFP(rows, cols int) (*FP, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	return &FP{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}, nil
}

// At returns the element at row r, column c.
func (m *FP) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

// Set stores x at row r, column c.
func (m *FP) Set(r, c int, x float64) {
	m.Data[r*m.Cols+c] = x
}

// Validate checks the dimensions against the host limits and the data length.
func (m *FP) Validate() error {
	if err := checkDims(m.Rows, m.Cols); err != nil {
		return err
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("fp matrix %dx%d has %d elements", m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

// ToMatrix normalises v into an owned Matrix: an array maps to its
// dimensions and deep-copied elements, a missing argument to an empty 0x0
// matrix, and any other value to a 1x1 matrix holding a copy of it.
// Dimensions are checked before anything is allocated.
func (e *Engine) ToMatrix(v *Value) (Matrix, error) {
	switch v.kind {
	case KindMissing:
		return Matrix{}, nil
	case KindMulti:
		rows, cols := int(v.rows), int(v.cols)
		if err := checkDims(rows, cols); err != nil {
			return Matrix{}, err
		}
		n := v.Len()
		if n == 0 {
			return Matrix{Rows: rows, Cols: cols}, nil
		}
		if len(v.elems) < n {
			return Matrix{}, fmt.Errorf("array %dx%d has only %d elements", rows, cols, len(v.elems))
		}
		cells, err := e.copyCells(v.elems[:n])
		if err != nil {
			return Matrix{}, err
		}
		return Matrix{Rows: rows, Cols: cols, Cells: cells}, nil
	default:
		cells, err := e.copyCells([]Value{*v})
		if err != nil {
			return Matrix{}, err
		}
		return Matrix{Rows: 1, Cols: 1, Cells: cells}, nil
	}
}

func (e *Engine) copyCells(src []Value) ([]Value, error) {
	cells := make([]Value, len(src))
	for i := range src {
		if err := e.copyInto(&cells[i], &src[i]); err != nil {
			for j := 0; j < i; j++ {
				e.Release(&cells[j])
			}
			return nil, err
		}
	}
	return cells, nil
}

// FromMatrix builds an array value holding deep copies of m's cells.
func (e *Engine) FromMatrix(m Matrix) (Value, error) {
	return e.NewArray(m.Rows, m.Cols, m.Cells)
}

// ReleaseMatrix releases the payloads of m's cells and resets m. The Cells
// slice itself is ordinary memory and is not accounted.
func (e *Engine) ReleaseMatrix(m *Matrix) {
	for i := range m.Cells {
		e.Release(&m.Cells[i])
	}
	*m = Matrix{}
}

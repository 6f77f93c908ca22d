package xll

import "github.com/xllconnector/xll-sdk/go/domain/value"

// Param is the set of native parameter types a function may take.
type Param interface {
	float64 | int32 | bool | string | value.ANSI |
		value.Value | *value.Value | value.Matrix | *value.FP |
		*float64 | *bool | *int16 | *int32 | uint16 | int16
}

// Result is the set of native types a function may return.
type Result interface {
	float64 | int32 | bool | string | value.ANSI |
		value.Value | value.Matrix | value.ErrorCode
}

// InOut is the set of parameter types that can carry a result back to the
// host in place.
type InOut interface {
	*value.Value | *value.FP | *float64 | *bool | *int16 | *int32
}

// Func0 exports a function without arguments.
func Func0[R Result](a *Addin, name string, fn func() R) *Builder {
	return a.Export(name, fn)
}

// Func1 exports a function of 1 argument.
func Func1[R Result, A1 Param](a *Addin, name string, fn func(A1) R) *Builder {
	return a.Export(name, fn)
}

// Func2 exports a function of 2 arguments.
func Func2[R Result, A1, A2 Param](a *Addin, name string, fn func(A1, A2) R) *Builder {
	return a.Export(name, fn)
}

// Func3 exports a function of 3 arguments.
func Func3[R Result, A1, A2, A3 Param](a *Addin, name string, fn func(A1, A2, A3) R) *Builder {
	return a.Export(name, fn)
}

// Func4 exports a function of 4 arguments.
func Func4[R Result, A1, A2, A3, A4 Param](a *Addin, name string, fn func(A1, A2, A3, A4) R) *Builder {
	return a.Export(name, fn)
}

// Func5 exports a function of 5 arguments.
func Func5[R Result, A1, A2, A3, A4, A5 Param](a *Addin, name string, fn func(A1, A2, A3, A4, A5) R) *Builder {
	return a.Export(name, fn)
}

// Func6 exports a function of 6 arguments.
func Func6[R Result, A1, A2, A3, A4, A5, A6 Param](a *Addin, name string, fn func(A1, A2, A3, A4, A5, A6) R) *Builder {
	return a.Export(name, fn)
}

// FuncE0 is Func0 for functions that can fail. A non-nil error makes
// the call answer #VALUE!.
func FuncE0[R Result](a *Addin, name string, fn func() (R, error)) *Builder {
	return a.Export(name, fn)
}

// FuncE1 is Func1 for functions that can fail.
func FuncE1[R Result, A1 Param](a *Addin, name string, fn func(A1) (R, error)) *Builder {
	return a.Export(name, fn)
}

// FuncE2 is Func2 for functions that can fail.
func FuncE2[R Result, A1, A2 Param](a *Addin, name string, fn func(A1, A2) (R, error)) *Builder {
	return a.Export(name, fn)
}

// FuncE3 is Func3 for functions that can fail.
func FuncE3[R Result, A1, A2, A3 Param](a *Addin, name string, fn func(A1, A2, A3) (R, error)) *Builder {
	return a.Export(name, fn)
}

// FuncE4 is Func4 for functions that can fail.
func FuncE4[R Result, A1, A2, A3, A4 Param](a *Addin, name string, fn func(A1, A2, A3, A4) (R, error)) *Builder {
	return a.Export(name, fn)
}

// FuncE5 is Func5 for functions that can fail.
func FuncE5[R Result, A1, A2, A3, A4, A5 Param](a *Addin, name string, fn func(A1, A2, A3, A4, A5) (R, error)) *Builder {
	return a.Export(name, fn)
}

// FuncE6 is Func6 for functions that can fail.
func FuncE6[R Result, A1, A2, A3, A4, A5, A6 Param](a *Addin, name string, fn func(A1, A2, A3, A4, A5, A6) (R, error)) *Builder {
	return a.Export(name, fn)
}

// Proc1 exports a function of 1 argument that returns nothing.
func Proc1[A1 Param](a *Addin, name string, fn func(A1)) *Builder {
	return a.Export(name, fn)
}

// Proc2 exports a function of 2 arguments that returns nothing.
func Proc2[A1, A2 Param](a *Addin, name string, fn func(A1, A2)) *Builder {
	return a.Export(name, fn)
}

// Proc3 exports a function of 3 arguments that returns nothing.
func Proc3[A1, A2, A3 Param](a *Addin, name string, fn func(A1, A2, A3)) *Builder {
	return a.Export(name, fn)
}

// InPlace exports a function that returns its result by modifying its
// argument.
func InPlace[T InOut](a *Addin, name string, fn func(T)) *Builder {
	return a.Export(name, fn).InPlace()
}

// InPlaceE is InPlace for functions that can fail. Failures are logged;
// the host sees whatever the function left in the argument.
func InPlaceE[T InOut](a *Addin, name string, fn func(T) error) *Builder {
	return a.Export(name, fn).InPlace()
}

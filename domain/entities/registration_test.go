package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistrationRequest(t *testing.T) {
	d := FunctionDescriptor{
		EntryPoint:  EntryPoint{Symbol: "xlAdd"},
		Name:        "Add",
		Signature:   "QBB$",
		Description: "Adds two numbers",
		Category:    "Math",
		Kind:        KindFunction,
		Args: []Argument{
			{Name: "a", Description: "first"},
			{Name: "b", Description: "second"},
		},
	}

	req := NewRegistrationRequest("addin.xll", d)

	assert.Equal(t, "addin.xll", req.Module)
	assert.Equal(t, "xlAdd", req.EntryPoint.Symbol)
	assert.Equal(t, "a,b", req.ArgNames)
	require.Len(t, req.ArgHelp, 2)
	assert.Equal(t, "first", req.ArgHelp[0])
	assert.Equal(t, "second  ", req.ArgHelp[1])
	assert.False(t, req.Short())

	// The descriptor itself is not modified by the padding.
	assert.Equal(t, "second", d.Args[1].Description)
}

func TestNewRegistrationRequest_NoArgs(t *testing.T) {
	req := NewRegistrationRequest("m", FunctionDescriptor{Name: "Now", Kind: KindFunction})

	assert.Empty(t, req.ArgNames)
	assert.Empty(t, req.ArgHelp)
	assert.True(t, req.Short())

	req.Description = "current time"
	assert.False(t, req.Short())
}

func TestRegistrationReport(t *testing.T) {
	var nilReport *RegistrationReport
	assert.False(t, nilReport.OK())

	r := &RegistrationReport{
		Registered: []RegisteredFunction{{Name: "Add", Signature: "QBB", ID: 7}},
	}
	assert.True(t, r.OK())

	f, ok := r.Lookup("Add")
	require.True(t, ok)
	assert.Equal(t, RegistrationID(7), f.ID)

	_, ok = r.Lookup("Sub")
	assert.False(t, ok)

	r.Failed = append(r.Failed, FailedRegistration{Name: "Big", Error: NewErrorDetail("registration", "too many parameters")})
	assert.False(t, r.OK())
}

func TestFunctionDescriptor_Clone(t *testing.T) {
	d := FunctionDescriptor{Name: "F", Args: []Argument{{Name: "x"}}}
	c := d.Clone()
	c.Args[0].Name = "y"
	assert.Equal(t, "x", d.Args[0].Name)
}

func TestFunctionKind_String(t *testing.T) {
	assert.Equal(t, "hidden", KindHidden.String())
	assert.Equal(t, "function", KindFunction.String())
	assert.Equal(t, "command", KindCommand.String())
	assert.Equal(t, "unknown", FunctionKind(9).String())
}

func TestErrorDetail_Error(t *testing.T) {
	var nilDetail *ErrorDetail
	assert.Equal(t, "", nilDetail.Error())
	assert.Equal(t, "plain", NewErrorDetail("internal", "plain").Error())

	d := NewErrorDetail("host", "refused")
	d.Code = "failed"
	assert.Equal(t, "host: refused [failed]", d.Error())
}

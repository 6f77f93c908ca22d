package value

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
)

// WideString is a UTF-16 string as the host passes it for the C% code.
type WideString []uint16

// EncodeWide converts s to UTF-16, rejecting strings over MaxStringLen units.
func EncodeWide(s string) (WideString, error) {
	u := utf16.Encode([]rune(s))
	if len(u) > MaxStringLen {
		return nil, fmt.Errorf("%w: %d code units (max %d)", sdkerrors.ErrStringTooLong, len(u), MaxStringLen)
	}
	return u, nil
}

// String decodes w. Unpaired surrogates become U+FFFD.
func (w WideString) String() string {
	return string(utf16.Decode(w))
}

// ANSI is a legacy 8-bit string in the host's Windows-1252 code page, as
// passed for the C code.
type ANSI []byte

// codePage is the legacy code page used for widening and narrowing.
var codePage = charmap.Windows1252

// ToANSI narrows s to the legacy code page. Runes the code page cannot
// represent are an error, never silently replaced or truncated.
func ToANSI(s string) (ANSI, error) {
	b, err := codePage.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("narrow %q: %w", s, err)
	}
	if len(b) > MaxANSILen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", sdkerrors.ErrStringTooLong, len(b), MaxANSILen)
	}
	return b, nil
}

// Widen decodes a to Go's UTF-8 representation.
func (a ANSI) Widen() (string, error) {
	s, err := codePage.NewDecoder().Bytes(a)
	if err != nil {
		return "", fmt.Errorf("widen: %w", err)
	}
	return string(s), nil
}

// String decodes a, returning the raw bytes if decoding fails.
func (a ANSI) String() string {
	s, err := a.Widen()
	if err != nil {
		return string(a)
	}
	return s
}

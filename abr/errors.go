package abr

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is matched by every ParseError.
	ErrMalformed = errors.New("abr: malformed archive")

	// ErrUnsupported is returned for versions the decoder does not read.
	ErrUnsupported = errors.New("abr: unsupported version")
)

// Reason classifies a ParseError.
type Reason string

// Parse failure reasons.
const (
	ReasonTruncated   Reason = "truncated"
	ReasonLength      Reason = "bad-length"
	ReasonSignature   Reason = "bad-signature"
	ReasonDepth       Reason = "bad-depth"
	ReasonCompression Reason = "bad-compression"
	ReasonBounds      Reason = "bad-bounds"
	ReasonType        Reason = "bad-type"
	ReasonVersion     Reason = "bad-version"
)

// ParseError reports where and why decoding failed.
type ParseError struct {
	Offset int
	Reason Reason
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	s := fmt.Sprintf("abr: %s at offset %d", e.Reason, e.Offset)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrMalformed for every ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrMalformed }

func malformed(off int, reason Reason, format string, args ...any) *ParseError {
	return &ParseError{Offset: off, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

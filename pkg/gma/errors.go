package gma

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned for precondition violations (nil streams,
// nil renderers, bad slot indices). It is checked before any I/O happens and
// is distinct from FormatError, which reports corrupt or inconsistent data.
var ErrInvalidArgument = errors.New("gma: invalid argument")

// Reason identifies why a FormatError was raised.
type Reason int

const (
	ReasonUnknownStripTag Reason = iota + 1
	ReasonPrecisionMismatch
	ReasonMisalignedOffset
	ReasonIndexOutOfRange
	ReasonVertexNotInPool
	ReasonInvalidTransformRef
	ReasonUnboundTransformRef
	ReasonAttributeMismatch
	ReasonUnknownVertexFlags
	ReasonBadMagic
	ReasonUnknownSectionFlags
	ReasonValueOutOfRange
	ReasonIndexedOverrun
	ReasonMatrixBindingOutOfRange
	ReasonInvalidEntryCount
	ReasonInvalidName
)

var reasonNames = map[Reason]string{
	ReasonUnknownStripTag:         "unknown strip tag",
	ReasonPrecisionMismatch:       "strip tag does not match object precision",
	ReasonMisalignedOffset:        "misaligned vertex offset",
	ReasonIndexOutOfRange:         "vertex index out of range",
	ReasonVertexNotInPool:         "vertex not in pool",
	ReasonInvalidTransformRef:     "invalid transform reference",
	ReasonUnboundTransformRef:     "transform matrix reference not bound",
	ReasonAttributeMismatch:       "vertex attributes do not match strip flags",
	ReasonUnknownVertexFlags:      "unknown vertex flags",
	ReasonBadMagic:                "bad GCMF magic",
	ReasonUnknownSectionFlags:     "unknown section flags",
	ReasonValueOutOfRange:         "value out of range",
	ReasonIndexedOverrun:          "indexed strip overruns display list",
	ReasonMatrixBindingOutOfRange: "matrix binding out of range",
	ReasonInvalidEntryCount:       "invalid entry count",
	ReasonInvalidName:             "invalid entry name",
}

// String returns a human-readable reason.
func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// FormatError reports data that does not follow the GMA/GCMF layout, either
// while decoding a stream or while encoding an inconsistent in-memory model.
type FormatError struct {
	Reason Reason
	Offset int64 // stream offset, -1 when not applicable
	Detail string
}

func (e *FormatError) Error() string {
	msg := "gma: " + e.Reason.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" (at 0x%x)", e.Offset)
	}
	return msg
}

func formatErrorf(reason Reason, offset int64, format string, args ...interface{}) *FormatError {
	return &FormatError{Reason: reason, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// IsFormatError reports whether err wraps a FormatError with the given reason.
// A zero reason matches any FormatError.
func IsFormatError(err error, reason Reason) bool {
	var fe *FormatError
	if !errors.As(err, &fe) {
		return false
	}
	return reason == 0 || fe.Reason == reason
}

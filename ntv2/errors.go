package ntv2

import (
	"fmt"

	"github.com/pkg/errors"
)

// Band classifies an error by severity, mirroring the banded integer
// code table of the format this package implements.
type Band int

const (
	BandGeneric      Band = 0 // < 100: out-of-memory, I/O, null header/path
	BandWarning      Band = 1 // 100-199: cosmetic fixups, file still usable
	BandRecoverable  Band = 2 // 200-299: bad lat/lon min/max/inc ordering
	BandUnrecoverable Band = 3 // 300-399: structural failures
)

func (b Band) String() string {
	switch b {
	case BandGeneric:
		return "generic"
	case BandWarning:
		return "warning"
	case BandRecoverable:
		return "recoverable"
	case BandUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Code is a stable error code, banded by its hundreds digit.
type Code int

const (
	ErrOK Code = 0

	// generic, < 100
	ErrOutOfMemory     Code = 1
	ErrIO              Code = 2
	ErrNullHeader      Code = 3
	ErrNullPath        Code = 4
	ErrCannotOpenFile  Code = 5
	ErrUnexpectedEOF   Code = 6

	// warnings, 100-199 (also see FixFlag bitmask)
	ErrFileNeedsFixing Code = 100

	// recoverable read errors, 200-299
	ErrLatOrder Code = 200
	ErrLonOrder Code = 201
	ErrLatInc   Code = 202
	ErrLonInc   Code = 203

	// unrecoverable, 300-399
	ErrBadOverviewCount  Code = 300
	ErrBadSubfileCount   Code = 301
	ErrBadFileCount      Code = 302
	ErrBadGSType         Code = 303
	ErrBadGSCount        Code = 304
	ErrBadDelta          Code = 305
	ErrInvalidParentName Code = 306
	ErrParentNotFound    Code = 307
	ErrNoTopLevelParent  Code = 308
	ErrParentLoop        Code = 309
	ErrParentOverlap     Code = 310
	ErrSubfileOverlap    Code = 311
	ErrInvalidExtent     Code = 312
	ErrHdrsNotRead       Code = 313
	ErrUnknownFileType   Code = 314
	ErrWrongFileKind     Code = 315
	ErrOrigDataNotKept   Code = 316
	ErrDataNotRead       Code = 317
	ErrInvalidASCIILine  Code = 318
)

func (c Code) Band() Band {
	switch {
	case c < 100:
		return BandGeneric
	case c < 200:
		return BandWarning
	case c < 300:
		return BandRecoverable
	default:
		return BandUnrecoverable
	}
}

// Error is the package's error type: a banded code plus a message and,
// where one exists, the wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ntv2: %s (code %d, %s): %v", e.Message, e.Code, e.Code.Band(), e.Cause)
	}
	return fmt.Sprintf("ntv2: %s (code %d, %s)", e.Message, e.Code, e.Code.Band())
}

func (e *Error) Unwrap() error { return e.Cause }

// newErr builds a banded error with no wrapped cause.
func newErr(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapErr attaches a banded code to a lower-level cause, preserving it
// for errors.Cause/errors.Unwrap while adding call-site context.
func wrapErr(code Code, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Code: code, Message: msg, Cause: errors.Wrapf(cause, msg)}
}

package dotosu

import (
	"errors"
	"fmt"
)

// ErrFatal is matched by every error that aborts a decode.
var ErrFatal = errors.New("fatal decode error")

var (
	ErrInvalidFormat      = errors.New("invalid format version marker")
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// Per-line failures. They never fail a decode, the offending line is dropped.
var (
	ErrInvalidLine          = errors.New("invalid line")
	ErrInvalidNumber        = errors.New("invalid number")
	ErrNumberOverflow       = errors.New("number overflow")
	ErrNumberUnderflow      = errors.New("number underflow")
	ErrNaN                  = errors.New("number is NaN")
	ErrInvalidMode          = errors.New("invalid game mode")
	ErrInvalidSampleSet     = errors.New("invalid sample set")
	ErrInvalidCountdown     = errors.New("invalid countdown type")
	ErrInvalidColour        = errors.New("colour must be R,G,B or R,G,B,A")
	ErrInvalidMeter         = errors.New("meter must be positive")
	ErrTimingPointNaN       = errors.New("uninherited timing point has NaN beat length")
	ErrUnknownHitObjectType = errors.New("hit object type must set exactly one kind bit")
	ErrTooManySlides        = errors.New("slide count out of range")
	ErrTooFewControlPoints  = errors.New("slider needs at least two control points")
)

// IOError is returned when the source cannot be read or the sink cannot be written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrFatal }

func newIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// FormatVersionError reports a version marker that is present but unusable.
type FormatVersionError struct {
	Line string
	Err  error
}

func (e *FormatVersionError) Error() string {
	return fmt.Sprintf("format version %q: %v", e.Line, e.Err)
}

func (e *FormatVersionError) Unwrap() error { return e.Err }

func (e *FormatVersionError) Is(target error) bool { return target == ErrFatal }

// LineError is the recoverable outcome of OnLine. The driver discards the line
// and fills in Section and Line when the handler left them empty.
type LineError struct {
	Section Section
	Line    string
	Err     error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("[%s] %q: %v", e.Section, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// skipLine marks err as recoverable for the current line.
func skipLine(err error) error {
	if err == nil {
		return nil
	}
	return &LineError{Err: err}
}

// IsRecoverable reports whether err only invalidates a single line.
func IsRecoverable(err error) bool {
	var le *LineError
	return errors.As(err, &le)
}

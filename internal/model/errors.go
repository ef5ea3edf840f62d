package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotUTF8   = errors.New("output is not valid utf-8")
	ErrNoDisplay = errors.New("no active display")
)

// CaptureError is returned when displays can't be enumerated or captured.
// Screen is -1 for enumeration failures.
type CaptureError struct {
	Screen ScreenID
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Screen < 0 {
		return fmt.Sprintf("enumerating displays: %v", e.Err)
	}
	return fmt.Sprintf("capturing display %d: %v", e.Screen, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// IOError is returned when a capture artifact can't be written or removed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RecognitionError is returned when the OCR engine fails or its output can't be
// decoded. Stderr holds the diagnostic output of the engine, if any.
type RecognitionError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("recognizing %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("recognizing %s: %v: %s", e.Path, e.Err, e.Stderr)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

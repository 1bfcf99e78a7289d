// Package geoerr defines the error kinds shared by the shape algebra, the
// geo shape mapper and its collaborators.
package geoerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration marks errors raised while a field or a shape tree is
	// being set up. They are fatal to index creation.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupported marks requests this mapper never serves.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrGeometryParse is matched by every *ParseError.
	ErrGeometryParse = errors.New("geometry parse error")

	// ErrGeometryOperation is matched by every *OperationError.
	ErrGeometryOperation = errors.New("geometry operation error")
)

// Configf returns a configuration error.
func Configf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// Unsupportedf returns an unsupported-operation error.
func Unsupportedf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupported)
}

const maxQuotedText = 96

// ParseError reports WKT text the kernel could not parse.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > maxQuotedText {
		text = text[:maxQuotedText] + "..."
	}
	if e.Err == nil {
		return fmt.Sprintf("unparseable shape %q", text)
	}
	return fmt.Sprintf("unparseable shape %q: %v", text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrGeometryParse }

// OperationError reports a kernel operation that rejected its operands.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("geometry %s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == ErrGeometryOperation }

// Parse wraps err as a *ParseError for text. An error that already is a
// parse error is returned unchanged.
func Parse(text string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Text: text, Err: err}
}

// Operation wraps err as an *OperationError for op. Parse and configuration
// errors pass through unchanged so the root cause keeps its kind.
func Operation(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OperationError
	if errors.As(err, &oe) || errors.Is(err, ErrGeometryParse) || errors.Is(err, ErrConfiguration) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}

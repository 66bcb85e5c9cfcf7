package ocpgen

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
	"github.com/broady/ocpgen/typescript"
)

// ErrorCode represents a machine-readable error kind.
type ErrorCode string

const (
	CodeSchemaNotFound ErrorCode = "schema_not_found"
	CodeSchemaParse    ErrorCode = "schema_parse"
	CodeValidation     ErrorCode = "validation"
	CodeGeneration     ErrorCode = "generation"
	CodeFilesystem     ErrorCode = "filesystem"
)

// Error is returned by every pipeline stage.
type Error struct {
	Code    ErrorCode
	Message string

	// Violations holds the validator messages in check order when Code is
	// CodeValidation.
	Violations []string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(e.Violations, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithViolations returns a copy of e carrying vs.
func (e *Error) WithViolations(vs []string) *Error {
	c := *e
	c.Violations = append([]string(nil), vs...)
	return &c
}

// CodeOf reports the code of the first *Error in err's chain. Errors from the
// lower layers are classified by type; anything else is a generation error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return classify(err).Code
}

// classify maps an error from any stage to an *Error.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var parseErr *schema.ParseError
	if errors.As(err, &parseErr) {
		return NewError(CodeSchemaParse, parseErr.Error()).WithCause(err)
	}

	var genErr *typescript.GenerationError
	if errors.As(err, &genErr) {
		return NewError(CodeGeneration, genErr.Error()).WithCause(err)
	}

	var writeErr *sink.WriteError
	if errors.As(err, &writeErr) {
		return NewError(CodeFilesystem, writeErr.Error()).WithCause(err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		if errors.Is(err, fs.ErrNotExist) {
			return Errorf(CodeSchemaNotFound, "schema file not found: %s", pathErr.Path).WithCause(err)
		}
		return NewError(CodeFilesystem, err.Error()).WithCause(err)
	}

	return NewError(CodeGeneration, err.Error()).WithCause(err)
}

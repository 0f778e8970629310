package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile          = errors.New("no file uploaded")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrTooFewRows           = errors.New("file must contain a header row and at least one data row")
	ErrUnknownProfile       = errors.New("unknown source profile")
	ErrMalformedFile        = errors.New("file could not be decoded")
	ErrFileTooLarge         = errors.New("uploaded file is too large")
)

// ValidationError is an input problem the uploader can fix. Everything else
// that fails during decoding or processing is an unexpected failure.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

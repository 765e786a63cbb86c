package model

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks raw text that could not be turned into rows.
	ErrParse = errors.New("parse error")
	// ErrUnsupportedFormat rejects input that is neither CSV nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported format: expected csv or json")
	// ErrSchemaInference is the "cannot infer schema" outcome.
	ErrSchemaInference = errors.New("unable to determine how to visualize this data: need a text field and a numeric field")
)

// ParseError describes malformed input text.
type ParseError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// NetworkError is a transport failure or a non-2xx response.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError rejects a user action before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

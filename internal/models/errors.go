package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is matched by every *QueryError
	ErrInvalidQuery = errors.New("invalid query")

	// ErrServiceStatus is matched by every *StatusError
	ErrServiceStatus = errors.New("unexpected service status")

	// ErrXMLParsing covers malformed bodies, unexpected envelopes and unparsable fragments
	ErrXMLParsing = errors.New("failed to parse XML")

	// ErrUnknownResponseShape is returned when the envelope holds neither data nor an error
	ErrUnknownResponseShape = errors.New("unknown response shape")
)

// QueryError is a query rejected locally or by the met service
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Message)
}

func (e *QueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// StatusError carries the HTTP status code of a failed service call
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("met API responded with status code %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrServiceStatus
}

package service

import (
	"errors"
	"fmt"
)

// Common errors surfaced to handlers as client errors
var (
	ErrSuggestionUnavailable = errors.New("transaction not found or no AI suggestion available")
	ErrAnomalyNotFound       = errors.New("anomaly not found")
	ErrInvalidPeriod         = errors.New("period start must be before period end")
)

// ServiceError wraps an error with the operation that produced it
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

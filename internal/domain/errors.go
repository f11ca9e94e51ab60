package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies domain-specific errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConversion ErrorType = "conversion"
	ErrorTypeIngestion  ErrorType = "ingestion"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeRanking    ErrorType = "ranking"
	ErrorTypeQuery      ErrorType = "query"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError carries an error category alongside its message and cause.
// Only ingestion errors propagate to callers as hard failures; every other
// category is absorbed into a degraded textual result before it reaches a
// user.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error.
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversion, message, err)
}

func IngestionError(message string, err error) *DomainError {
	return NewError(ErrorTypeIngestion, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func RankingError(message string, err error) *DomainError {
	return NewError(ErrorTypeRanking, message, err)
}

func QueryError(message string, err error) *DomainError {
	return NewError(ErrorTypeQuery, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// IsIngestion reports whether err is an ingestion failure, the one category
// that surfaces to the caller of Store.Add.
func IsIngestion(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Type == ErrorTypeIngestion
}

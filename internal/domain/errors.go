package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a prediction request is missing fields or carries non-finite values
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable is returned when trained artifacts or the catalog are missing or inconsistent
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrMalformedRecord is returned when a spec or price string has no numeric prefix
	ErrMalformedRecord = errors.New("malformed record")

	// ErrDegenerateFeature is returned when a numeric column has (near) zero variance at fit time
	ErrDegenerateFeature = errors.New("degenerate feature: standard deviation below epsilon")

	// ErrTrainingFailed is returned when the training job cannot produce a finite model
	ErrTrainingFailed = errors.New("training failed")

	// ErrEmptyCatalog is returned when no usable catalog rows are available
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// ErrorKind classifies a PredictionError so the boundary can decide presentation.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindModelUnavailable
	KindMalformedRecord
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindModelUnavailable:
		return "ModelUnavailable"
	case KindMalformedRecord:
		return "MalformedRecord"
	default:
		return "Unknown"
	}
}

// sentinel returns the package-level error matching the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindModelUnavailable:
		return ErrModelUnavailable
	case KindMalformedRecord:
		return ErrMalformedRecord
	default:
		return nil
	}
}

// PredictionError is the typed failure returned by the pricing pipeline.
type PredictionError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewPredictionError builds a PredictionError for the given kind.
func NewPredictionError(kind ErrorKind, op string, err error) *PredictionError {
	return &PredictionError{Kind: kind, Op: op, Err: err}
}

func (e *PredictionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidInput) match on the kind regardless of the wrapped cause.
func (e *PredictionError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// MalformedRecordError describes a catalog row or request field that could not be parsed.
type MalformedRecordError struct {
	Row   int // 1-based data row; 0 when not from a catalog file
	Field string
	Value string
}

func (e *MalformedRecordError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %q has no numeric value", e.Row, e.Field, e.Value)
	}
	return fmt.Sprintf("%s %q has no numeric value", e.Field, e.Value)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

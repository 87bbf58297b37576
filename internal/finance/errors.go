package finance

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrDataNotFound      = errors.New("finance: price data not found")
	ErrSchema            = errors.New("finance: price table schema invalid")
	ErrInvalidPrice      = errors.New("finance: non-positive or non-finite price")
	ErrDimensionMismatch = errors.New("finance: weights do not match asset count")
	ErrInsufficientData  = errors.New("finance: insufficient return observations")
	ErrInvalidParameter  = errors.New("finance: invalid parameter")
)

// DataNotFoundError reports a missing price source. Recoverable: produce the
// data and rerun.
type DataNotFoundError struct {
	Source string
	Cause  error
}

func (e *DataNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("price data not found at %s: %v", e.Source, e.Cause)
	}
	return fmt.Sprintf("price data not found at %s", e.Source)
}

func (e *DataNotFoundError) Is(target error) bool { return target == ErrDataNotFound }
func (e *DataNotFoundError) Unwrap() error        { return e.Cause }

// SchemaError reports a price table whose shape breaks the loader contract.
type SchemaError struct {
	Source string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid price table %s: %s", e.Source, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// InvalidPriceError reports a price for which the log-return is undefined.
type InvalidPriceError struct {
	Asset string
	Date  time.Time
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %v for %s on %s: log-return undefined",
		e.Price, e.Asset, e.Date.Format("2006-01-02"))
}

func (e *InvalidPriceError) Is(target error) bool { return target == ErrInvalidPrice }

// DimensionMismatchError reports a weights vector that does not fit the asset set.
type DimensionMismatchError struct {
	Weights int
	Assets  int
	Detail  string
}

func (e *DimensionMismatchError) Error() string {
	msg := fmt.Sprintf("got %d weights for %d assets", e.Weights, e.Assets)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// InsufficientDataError reports too few return rows to estimate a sample covariance.
type InsufficientDataError struct {
	Observations int
	Required     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d return observations, got %d", e.Required, e.Observations)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

func invalidParam(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

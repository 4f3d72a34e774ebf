package transform

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrConversion marks bad input data: the value cannot be represented
	// as the destination type.
	ErrConversion = errors.New("conversion failed")
	// ErrContract marks a dispatch bug: the value's runtime shape does not
	// match its declared source type, or no strategy handles the pair.
	ErrContract = errors.New("transformer contract violated")
)

// ConversionError reports a value that cannot be converted to the
// destination type. It is a per-row data quality failure.
type ConversionError struct {
	Value any
	From  schema.LogicalType
	To    schema.LogicalType
	Err   error
}

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot convert %q from %s to %s", fmt.Sprint(e.Value), e.From, e.To)
	}
	return fmt.Sprintf("cannot convert %q from %s to %s: %v", fmt.Sprint(e.Value), e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConversion) true for every ConversionError.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// ContractError reports a transformer invoked with a value it was never
// meant to receive. It is not recoverable by skipping the row.
type ContractError struct {
	Value  any
	From   schema.LogicalType
	To     schema.LogicalType
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("transform %s to %s with %T: %s", e.From, e.To, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrContract) true for every ContractError.
func (e *ContractError) Is(target error) bool { return target == ErrContract }

func conversionErr(raw any, from, to schema.LogicalType, err error) error {
	return &ConversionError{Value: raw, From: from, To: to, Err: err}
}

func contractErr(raw any, from, to schema.LogicalType, reason string) error {
	return &ContractError{Value: raw, From: from, To: to, Reason: reason}
}

// Causes used inside ConversionError.
var (
	errOutOfRange = errors.New("out of range")
	errTooLong    = errors.New("longer than column length")
	errFractional = errors.New("has a fractional part")
	errNotBoolean = errors.New("not a boolean word")
	errNotNumber  = errors.New("not a number")
	errNotFinite  = errors.New("not a finite number")
)

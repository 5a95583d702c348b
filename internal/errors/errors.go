package errors

import (
	"errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// InsufficientStockError signals that a reserve attempt lost the race for
// available stock. It is an expected outcome, not an infrastructure
// failure, and carries the products that could not be reserved.
type InsufficientStockError struct {
	ReservationID string
	ProductIDs    []int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for products %v (reservation %s)", e.ProductIDs, e.ReservationID)
}

func NewInsufficientStockError(reservationID string, productIDs []int) *InsufficientStockError {
	return &InsufficientStockError{ReservationID: reservationID, ProductIDs: productIDs}
}

func IsInsufficientStockError(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

// InvalidTransitionError rejects an order status change that is not in the
// transition table. No side effect has run when it is returned.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if errors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

// ReservationInconsistencyError reports that a confirm or release found the
// ledger already altered away from the expected reserved amounts. The
// status change it accompanied still went through; operators must
// reconcile the listed products by hand.
type ReservationInconsistencyError struct {
	ReservationID string
	ProductIDs    []int
}

func (e *ReservationInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistent with reservation %s for products %v", e.ReservationID, e.ProductIDs)
}

func NewReservationInconsistencyError(reservationID string, productIDs []int) *ReservationInconsistencyError {
	return &ReservationInconsistencyError{ReservationID: reservationID, ProductIDs: productIDs}
}

func IsReservationInconsistencyError(err error) (*ReservationInconsistencyError, bool) {
	var rie *ReservationInconsistencyError
	if errors.As(err, &rie) {
		return rie, true
	}
	return nil, false
}

// CompensationError reports that a compensating release itself failed,
// leaving the ledger inconsistent with the order. It must never be
// swallowed; there is no automatic retry.
type CompensationError struct {
	ReservationID string
	ProductIDs    []int
	Cause         error
}

func (e *CompensationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compensation failed for reservation %s, products %v: %v", e.ReservationID, e.ProductIDs, e.Cause)
	}
	return fmt.Sprintf("compensation failed for reservation %s, products %v", e.ReservationID, e.ProductIDs)
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}

func NewCompensationError(reservationID string, productIDs []int, cause error) *CompensationError {
	return &CompensationError{ReservationID: reservationID, ProductIDs: productIDs, Cause: cause}
}

func IsCompensationError(err error) (*CompensationError, bool) {
	var ce *CompensationError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

func IsInternalError(err error) (*InternalError, bool) {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an expected business-rule failure. Anything that is not
// an *Error is an unexpected storage failure and is treated as internal.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindNotFound         ErrorKind = "not_found"
	KindNoApplicableRule ErrorKind = "no_applicable_rule"
)

// Error is a discriminated business failure. Two errors match under errors.Is
// when their codes are equal, so callers compare against the sentinels below.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Ledger
	ErrDuplicateAccountCode  = &Error{Kind: KindConflict, Code: "DuplicateAccountCode"}
	ErrInvalidAccountType    = &Error{Kind: KindValidation, Code: "InvalidAccountType"}
	ErrAccountNotFound       = &Error{Kind: KindNotFound, Code: "AccountNotFound"}
	ErrAccountInactive       = &Error{Kind: KindConflict, Code: "AccountInactive"}
	ErrAccountHasBalance     = &Error{Kind: KindConflict, Code: "AccountHasBalance"}
	ErrInvalidEntry          = &Error{Kind: KindValidation, Code: "InvalidEntry"}
	ErrInsufficientEntries   = &Error{Kind: KindValidation, Code: "InsufficientEntries"}
	ErrUnbalancedTransaction = &Error{Kind: KindConflict, Code: "UnbalancedTransaction"}
	ErrTransactionNotFound   = &Error{Kind: KindNotFound, Code: "TransactionNotFound"}
	ErrAlreadyPosted         = &Error{Kind: KindConflict, Code: "AlreadyPosted"}

	// Invoices and payments
	ErrEmptyInvoice         = &Error{Kind: KindValidation, Code: "EmptyInvoice"}
	ErrInvalidInvoiceLine   = &Error{Kind: KindValidation, Code: "InvalidInvoiceLine"}
	ErrInvalidDates         = &Error{Kind: KindValidation, Code: "InvalidDates"}
	ErrInvoiceNotFound      = &Error{Kind: KindNotFound, Code: "InvoiceNotFound"}
	ErrInvalidAmount        = &Error{Kind: KindValidation, Code: "InvalidAmount"}
	ErrInvalidPaymentMethod = &Error{Kind: KindValidation, Code: "InvalidPaymentMethod"}
	ErrOverPayment          = &Error{Kind: KindConflict, Code: "OverPayment"}

	// Agencies
	ErrAgencyNotFound    = &Error{Kind: KindNotFound, Code: "AgencyNotFound"}
	ErrDuplicateAgency   = &Error{Kind: KindConflict, Code: "DuplicateAgencyCode"}
	ErrInvalidTransition = &Error{Kind: KindConflict, Code: "InvalidTransition"}

	// Commissions
	ErrInvalidRule          = &Error{Kind: KindValidation, Code: "InvalidRule"}
	ErrRuleNotFound         = &Error{Kind: KindNotFound, Code: "RuleNotFound"}
	ErrNoApplicableRule     = &Error{Kind: KindNoApplicableRule, Code: "NoApplicableRule"}
	ErrCommissionNotFound   = &Error{Kind: KindNotFound, Code: "CommissionNotFound"}
	ErrDuplicateCommission  = &Error{Kind: KindConflict, Code: "DuplicateCommission"}
	ErrBookingNotFound      = &Error{Kind: KindNotFound, Code: "BookingNotFound"}
	ErrInvalidBookingStatus = &Error{Kind: KindValidation, Code: "InvalidBookingStatus"}

	// Generic input
	ErrValidation = &Error{Kind: KindValidation, Code: "ValidationFailed"}
)

// failf returns a copy of base carrying a formatted message.
func failf(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err to a business *Error if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Package apperror defines the error taxonomy shared by the booking and payment flow.
package apperror

import "errors"

// Kind classifies an error for HTTP mapping and retry decisions.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindNotFound          Kind = "not_found"
	KindGateway           Kind = "gateway"
	KindAlreadyFinalized  Kind = "already_finalized"
	KindRefundConflict    Kind = "refund_conflict"
	KindInternal          Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a malformed request, rejected before any side effect.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// SignatureMismatch reports an untrusted payment confirmation.
func SignatureMismatch(msg string) *Error {
	return &Error{Kind: KindSignatureMismatch, Message: msg}
}

// NotFound reports an unknown event, slot or payment.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Gateway reports that the payment provider was unreachable or rejected the call.
func Gateway(msg string, err error) *Error {
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

// AlreadyFinalized reports a slot that is already booked.
func AlreadyFinalized(msg string) *Error {
	return &Error{Kind: KindAlreadyFinalized, Message: msg}
}

// RefundConflict reports a refund attempted on a payment that is not paid.
func RefundConflict(msg string) *Error {
	return &Error{Kind: KindRefundConflict, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the client-safe message of err. Unclassified errors get a generic text.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Message
	}
	return "internal error"
}

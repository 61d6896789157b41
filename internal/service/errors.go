package service

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindExternalService
	KindDataIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindExternalService:
		return "external_service_error"
	case KindDataIntegrity:
		return "data_integrity_anomaly"
	}
	return "internal"
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrMissingContext        = errors.New("payment is missing user context")
	ErrEmptyCartAtSettlement = errors.New("cart empty at settlement")
	ErrNotFound              = errors.New("not found")
)

// Error is a classified service failure. Message is safe to show to callers.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// notFoundOr maps a missing row to a NotFound error and anything else to Internal.
func notFoundOr(err error, what string) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: what + " not found", Err: ErrNotFound}
	}
	return internalError("load "+what, err)
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidSignature):
		return KindValidation
	case errors.Is(err, ErrMissingContext), errors.Is(err, ErrEmptyCartAtSettlement):
		return KindDataIntegrity
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	}
	return KindInternal
}

// PublicMessage is the text returned to HTTP callers for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Kind != KindDataIntegrity {
		return e.Message
	}
	switch KindOf(err) {
	case KindInternal, KindDataIntegrity:
		return "internal server error"
	}
	return err.Error()
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

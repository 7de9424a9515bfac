package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Configuration errors are raised before any network call is attempted
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Gateway errors (transport, protocol, authenticity)
	ErrorCodeTransport              ErrorCode = "TRANSPORT_ERROR"
	ErrorCodeProtocol               ErrorCode = "PROTOCOL_ERROR"
	ErrorCodeAuthenticationMismatch ErrorCode = "AUTHENTICATION_MISMATCH"
	ErrorCodeDuplicateTransaction   ErrorCode = "DUPLICATE_TRANSACTION"
	ErrorCodeDeclined               ErrorCode = "DECLINED"

	// Collaborator errors
	ErrorCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrorCodeExpired    ErrorCode = "EXPIRED"
	ErrorCodeConflict   ErrorCode = "CONFLICT"
	ErrorCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so the
// package-level sentinels work with errors.Is even after WithDetail copies.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithDetail returns a copy of the error carrying an extra detail field
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Err: e.Err, Details: details, Code: e.Code, Message: e.Message}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsConfigurationError reports whether err must be surfaced without contacting the gateway
func IsConfigurationError(err error) bool {
	return IsDomainError(err, ErrorCodeConfiguration)
}

// IsTransportError reports whether err came from exhausting the failover loop
func IsTransportError(err error) bool {
	return IsDomainError(err, ErrorCodeTransport)
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	return IsDomainError(err, ErrorCodeNotFound)
}

var (
	ErrInvalidMerchantID  = NewDomainError(ErrorCodeConfiguration, "gateway merchant ID does not match the ABCDEF-1234567 format")
	ErrMissingCredentials = NewDomainError(ErrorCodeConfiguration, "gateway merchant ID and password are required")
	ErrInvalidHashMethod  = NewDomainError(ErrorCodeConfiguration, "unsupported gateway hash method")
	ErrNoEntryPoints      = NewDomainError(ErrorCodeConfiguration, "no gateway entry points configured")

	ErrTransportDisabled   = NewDomainError(ErrorCodeTransport, "communication on port 4430 is disabled")
	ErrGatewayUnreachable  = NewDomainError(ErrorCodeTransport, "no valid response from any gateway entry point")
	ErrUnsupportedStatus   = NewDomainError(ErrorCodeProtocol, "unknown or unsupported payment status")
	ErrDigestMismatch      = NewDomainError(ErrorCodeAuthenticationMismatch, "hash digest verification failed")
	ErrAlreadyPaid         = NewDomainError(ErrorCodeDuplicateTransaction, "order has already been paid")
	ErrTransactionDeclined = NewDomainError(ErrorCodeDeclined, "transaction was declined by the gateway")

	ErrOrderNotFound     = NewDomainError(ErrorCodeNotFound, "order not found")
	ErrOrderExists       = NewDomainError(ErrorCodeConflict, "order already exists")
	ErrChallengeNotFound = NewDomainError(ErrorCodeNotFound, "3-D Secure challenge not found")
	ErrSecretNotFound    = NewDomainError(ErrorCodeNotFound, "secret not found")
	ErrEmptyOrderID      = NewDomainError(ErrorCodeValidation, "order ID is empty")
	ErrInvalidAmount     = NewDomainError(ErrorCodeValidation, "invalid amount")
	ErrPaymentExpired    = NewDomainError(ErrorCodeExpired, "the allowed time for paying this order has expired")
)

package dto

import "net/http"

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "UNKNOWN_ERROR"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeValidation is the base code for request validation errors
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	// ErrCodeInvalidState is used when an operation is invalid for the current state
	ErrCodeInvalidState = "INVALID_STATE"
)

// Authentication and remote-integration error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeMissingCredential is used when a credential field is absent
	ErrCodeMissingCredential = "MISSING_CREDENTIAL"
	// ErrCodeAuthRejected is used when the tax authority rejects the credentials
	ErrCodeAuthRejected = "AUTH_REJECTED"
	// ErrCodeRateLimited is used when a tenant is in authentication cooldown
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeTimeout is used when the tax authority does not answer in time
	ErrCodeTimeout = "TIMEOUT"
	// ErrCodeConnectivity is used when the tax authority cannot be reached
	ErrCodeConnectivity = "CONNECTIVITY_ERROR"
	// ErrCodeConversion is used when a document field cannot be interpreted
	ErrCodeConversion = "CONVERSION_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,

	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeMissingCredential: http.StatusBadRequest,
	ErrCodeAuthRejected:      http.StatusUnauthorized,
	ErrCodeRateLimited:       http.StatusTooManyRequests,

	// Remote failures surface as gateway errors: the service itself is fine
	ErrCodeTimeout:      http.StatusGatewayTimeout,
	ErrCodeConnectivity: http.StatusBadGateway,
	ErrCodeConversion:   http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

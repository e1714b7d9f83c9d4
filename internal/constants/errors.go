package constants

import "net/http"

// APIError represents a standardized API error with code, message, and HTTP status.
// Use these predefined errors for consistent API responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
// Useful for validation errors or other dynamic messages.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInvalidRequestBody = APIError{
		Code:    CodeInvalidRequest,
		Message: MsgInvalidRequestBody,
		Status:  http.StatusBadRequest,
	}
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
)

// DICT rate-limit errors
var (
	ErrFailedToSimulate = APIError{
		Code:    CodeInternalError,
		Message: MsgFailedToSimulate,
		Status:  http.StatusInternalServerError,
	}
	ErrFailedToRegisterCredit = APIError{
		Code:    CodeInternalError,
		Message: MsgFailedToRegisterCredit,
		Status:  http.StatusInternalServerError,
	}
	ErrFailedToFetchBucket = APIError{
		Code:    CodeInternalError,
		Message: MsgFailedToFetchBucket,
		Status:  http.StatusInternalServerError,
	}
	ErrBucketNotFound = APIError{
		Code:    CodeNotFound,
		Message: MsgBucketNotFound,
		Status:  http.StatusNotFound,
	}
	ErrForbiddenScope = APIError{
		Code:    CodeForbidden,
		Message: MsgForbiddenScope,
		Status:  http.StatusForbidden,
	}
)

// PIX query errors
var (
	ErrFailedToQueryPixKey = APIError{
		Code:    CodeInternalError,
		Message: MsgFailedToQueryPixKey,
		Status:  http.StatusInternalServerError,
	}
)

// Auth-related errors
var (
	ErrInvalidCredentials = APIError{
		Code:    CodeInvalidCredentials,
		Message: MsgInvalidCredentials,
		Status:  http.StatusUnauthorized,
	}
	ErrAuthHeaderRequired = APIError{
		Code:    CodeUnauthorized,
		Message: MsgAuthHeaderRequired,
		Status:  http.StatusUnauthorized,
	}
	ErrInvalidToken = APIError{
		Code:    CodeUnauthorized,
		Message: MsgInvalidToken,
		Status:  http.StatusUnauthorized,
	}
	ErrInvalidTokenClaims = APIError{
		Code:    CodeUnauthorized,
		Message: MsgInvalidTokenClaims,
		Status:  http.StatusUnauthorized,
	}
	ErrFailedToFindTenant = APIError{
		Code:    CodeInternalError,
		Message: MsgFailedToFindTenant,
		Status:  http.StatusInternalServerError,
	}
	ErrFailedToSignToken = APIError{
		Code:    CodeInternalError,
		Message: MsgFailedToSignToken,
		Status:  http.StatusInternalServerError,
	}
)

// Rate limiting errors
var (
	ErrTooManyRequests = APIError{
		Code:    CodeTooManyRequests,
		Message: MsgTooManyRequests,
		Status:  http.StatusTooManyRequests,
	}
)

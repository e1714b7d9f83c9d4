package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
// Use these predefined success constants for consistent API responses across the application.
type APISuccess struct {
	Code   string
	Status int
}

// DICT rate-limit success responses
var (
	SuccessOperationSimulated = APISuccess{
		Code:   CodeOperationSimulated,
		Status: http.StatusOK,
	}
	SuccessPaymentRegistered = APISuccess{
		Code:   CodePaymentRegistered,
		Status: http.StatusOK,
	}
	SuccessBucketFound = APISuccess{
		Code:   CodeBucketFound,
		Status: http.StatusOK,
	}
	SuccessBucketsListed = APISuccess{
		Code:   CodeBucketsListed,
		Status: http.StatusOK,
	}
)

// PIX query success responses
var (
	SuccessPixQueryProcessed = APISuccess{
		Code:   CodePixQueryProcessed,
		Status: http.StatusOK,
	}
	SuccessPixBucketFound = APISuccess{
		Code:   CodePixBucketFound,
		Status: http.StatusOK,
	}
)

// Auth-related success responses
var (
	SuccessLoginSuccess = APISuccess{
		Code:   CodeLoginSuccess,
		Status: http.StatusOK,
	}
)

package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "code" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"

	// Auth-specific codes
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Rate limiting codes
	CodeTooManyRequests = "TOO_MANY_REQUESTS"

	// Success codes - DICT rate-limit operations
	CodeOperationSimulated = "OPERATION_SIMULATED"
	CodePaymentRegistered  = "PAYMENT_REGISTERED"
	CodeBucketFound        = "BUCKET_FOUND"
	CodeBucketsListed      = "BUCKETS_LISTED"

	// Success codes - PIX query operations
	CodePixQueryProcessed = "PIX_QUERY_PROCESSED"
	CodePixBucketFound    = "PIX_BUCKET_FOUND"

	// Success codes - Auth operations
	CodeLoginSuccess = "LOGIN_SUCCESS"
)

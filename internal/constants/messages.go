package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"

	// DICT rate-limit messages
	MsgFailedToSimulate       = "Failed to simulate operation"
	MsgFailedToRegisterCredit = "Failed to register payment"
	MsgFailedToFetchBucket    = "Failed to fetch bucket state"
	MsgBucketNotFound         = "No bucket found for this policy and scope"
	MsgForbiddenScope         = "Scope key does not belong to the authenticated tenant"

	// PIX query messages
	MsgFailedToQueryPixKey = "Failed to process Pix key query"

	// Auth-specific messages
	MsgInvalidCredentials = "Invalid participant code or secret"
	MsgAuthHeaderRequired = "Authorization header is required"
	MsgInvalidToken       = "Invalid or expired token"
	MsgInvalidTokenClaims = "Invalid token claims"
	MsgFailedToFindTenant = "Failed to find tenant"
	MsgFailedToSignToken  = "Failed to generate token"

	// Rate limiting messages
	MsgTooManyRequests = "Rate limit exceeded. Please try again later."
)

package leakybucket

import "time"

// QueryStatus is the outcome of one PIX key query.
type QueryStatus string

const (
	StatusSuccess     QueryStatus = "SUCCESS"
	StatusFailed      QueryStatus = "FAILED"
	StatusRateLimited QueryStatus = "RATE_LIMITED"
)

// KeyStatus marks whether a stored Pix key is usable.
type KeyStatus string

const (
	KeyActive   KeyStatus = "ACTIVE"
	KeyInactive KeyStatus = "INACTIVE"
)

// Failure reasons recorded on query attempts.
const (
	ReasonNoAvailableTokens = "NO_AVAILABLE_TOKENS"
	ReasonKeyNotFound       = "PIX_KEY_NOT_FOUND"
	ReasonKeyInactive       = "PIX_KEY_INACTIVE"
)

// BucketSnapshot is the per-tenant query-quota bucket. Refill is discrete:
// whole hours only.
type BucketSnapshot struct {
	TenantID        string    `json:"tenantId" bson:"tenantId"`
	AvailableTokens int       `json:"availableTokens" bson:"availableTokens"`
	MaxTokens       int       `json:"maxTokens" bson:"maxTokens"`
	LastRefillAt    time.Time `json:"lastRefillAt" bson:"lastRefillAt"`
}

// PixKey is read-only reference data a query resolves against.
type PixKey struct {
	Key       string    `json:"key" bson:"key"`
	OwnerName string    `json:"ownerName" bson:"ownerName"`
	BankName  string    `json:"bankName" bson:"bankName"`
	Status    KeyStatus `json:"status" bson:"status"`
}

// QueryPixKeyInput is one quota-gated lookup request.
type QueryPixKeyInput struct {
	PixKey      string `json:"pixKey"`
	AmountCents int64  `json:"amountCents"`
}

// QueryResult is the full outcome surfaced to the caller.
type QueryResult struct {
	Status          QueryStatus `json:"status"`
	Message         string      `json:"message"`
	PixKeyFound     bool        `json:"pixKeyFound"`
	OwnerName       string      `json:"ownerName,omitempty"`
	BankName        string      `json:"bankName,omitempty"`
	AvailableTokens int         `json:"availableTokens"`
	MaxTokens       int         `json:"maxTokens"`
	ConsumedToken   bool        `json:"consumedToken"`
	RequestedAt     time.Time   `json:"requestedAt"`
}

// BucketStateResult is the read-only bucket view.
type BucketStateResult struct {
	AvailableTokens int       `json:"availableTokens"`
	MaxTokens       int       `json:"maxTokens"`
	LastRefillAt    time.Time `json:"lastRefillAt"`
}

// QueryAttempt is the immutable audit record of one query.
type QueryAttempt struct {
	TenantID      string      `bson:"tenantId"`
	PixKey        string      `bson:"pixKey"`
	Amount        string      `bson:"amount"`
	Result        QueryStatus `bson:"result"`
	FailureReason string      `bson:"failureReason,omitempty"`
	TokensBefore  int         `bson:"tokensBefore"`
	TokensAfter   int         `bson:"tokensAfter"`
	CreatedAt     time.Time   `bson:"createdAt"`
}

package dict

import (
	"errors"
	"fmt"
	"time"
)

// Operation identifies a DICT API operation subject to rate limiting
type Operation string

const (
	OpGetEntry                     Operation = "GET_ENTRY"
	OpGetEntryStatistics           Operation = "GET_ENTRY_STATISTICS"
	OpCreateEntry                  Operation = "CREATE_ENTRY"
	OpDeleteEntry                  Operation = "DELETE_ENTRY"
	OpUpdateEntry                  Operation = "UPDATE_ENTRY"
	OpGetClaim                     Operation = "GET_CLAIM"
	OpCreateClaim                  Operation = "CREATE_CLAIM"
	OpAcknowledgeClaim             Operation = "ACKNOWLEDGE_CLAIM"
	OpCancelClaim                  Operation = "CANCEL_CLAIM"
	OpConfirmClaim                 Operation = "CONFIRM_CLAIM"
	OpCompleteClaim                Operation = "COMPLETE_CLAIM"
	OpListClaims                   Operation = "LIST_CLAIMS"
	OpCreateSyncVerification       Operation = "CREATE_SYNC_VERIFICATION"
	OpCreateCidSetFile             Operation = "CREATE_CID_SET_FILE"
	OpGetCidSetFile                Operation = "GET_CID_SET_FILE"
	OpListCidSetEvents             Operation = "LIST_CID_SET_EVENTS"
	OpGetEntryByCid                Operation = "GET_ENTRY_BY_CID"
	OpGetInfractionReport          Operation = "GET_INFRACTION_REPORT"
	OpCreateInfractionReport       Operation = "CREATE_INFRACTION_REPORT"
	OpAcknowledgeInfractionReport  Operation = "ACKNOWLEDGE_INFRACTION_REPORT"
	OpCancelInfractionReport       Operation = "CANCEL_INFRACTION_REPORT"
	OpCloseInfractionReport        Operation = "CLOSE_INFRACTION_REPORT"
	OpUpdateInfractionReport       Operation = "UPDATE_INFRACTION_REPORT"
	OpListInfractionReports        Operation = "LIST_INFRACTION_REPORTS"
	OpCheckKeys                    Operation = "CHECK_KEYS"
	OpGetRefund                    Operation = "GET_REFUND"
	OpCreateRefund                 Operation = "CREATE_REFUND"
	OpCancelRefund                 Operation = "CANCEL_REFUND"
	OpCloseRefund                  Operation = "CLOSE_REFUND"
	OpListRefunds                  Operation = "LIST_REFUNDS"
	OpGetFraudMarker               Operation = "GET_FRAUD_MARKER"
	OpCreateFraudMarker            Operation = "CREATE_FRAUD_MARKER"
	OpCancelFraudMarker            Operation = "CANCEL_FRAUD_MARKER"
	OpListFraudMarkers             Operation = "LIST_FRAUD_MARKERS"
	OpGetPersonStatistics          Operation = "GET_PERSON_STATISTICS"
	OpGetBucketState               Operation = "GET_BUCKET_STATE"
	OpListBucketStates             Operation = "LIST_BUCKET_STATES"
	OpListEventNotifications       Operation = "LIST_EVENT_NOTIFICATIONS"
)

// Operations lists every supported operation.
var Operations = []Operation{
	OpGetEntry, OpGetEntryStatistics, OpCreateEntry, OpDeleteEntry, OpUpdateEntry,
	OpGetClaim, OpCreateClaim, OpAcknowledgeClaim, OpCancelClaim, OpConfirmClaim,
	OpCompleteClaim, OpListClaims, OpCreateSyncVerification, OpCreateCidSetFile,
	OpGetCidSetFile, OpListCidSetEvents, OpGetEntryByCid, OpGetInfractionReport,
	OpCreateInfractionReport, OpAcknowledgeInfractionReport, OpCancelInfractionReport,
	OpCloseInfractionReport, OpUpdateInfractionReport, OpListInfractionReports,
	OpCheckKeys, OpGetRefund, OpCreateRefund, OpCancelRefund, OpCloseRefund,
	OpListRefunds, OpGetFraudMarker, OpCreateFraudMarker, OpCancelFraudMarker,
	OpListFraudMarkers, OpGetPersonStatistics, OpGetBucketState, OpListBucketStates,
	OpListEventNotifications,
}

// KeyType represents the type of Pix key referenced by a lookup
type KeyType string

const (
	KeyTypeCPF   KeyType = "CPF"
	KeyTypeCNPJ  KeyType = "CNPJ"
	KeyTypeEMAIL KeyType = "EMAIL"
	KeyTypePHONE KeyType = "PHONE"
	KeyTypeEVP   KeyType = "EVP"
)

// ScopeType defines who a quota bucket applies to
type ScopeType string

const (
	// ScopePSP buckets are shared across all requests from a participant
	ScopePSP ScopeType = "PSP"

	// ScopeUser buckets are per end-user under one participant
	ScopeUser ScopeType = "USER"
)

// FinalUserCategory classifies the end user by tax id length:
// PF (individual, CPF) or PJ (business, CNPJ)
type FinalUserCategory string

const (
	FinalUserPF FinalUserCategory = "PF"
	FinalUserPJ FinalUserCategory = "PJ"
)

// ParticipantCategory sizes a participant's PSP-scoped buckets, A (largest)
// through H (smallest)
type ParticipantCategory string

const (
	ParticipantCategoryA ParticipantCategory = "A"
	ParticipantCategoryB ParticipantCategory = "B"
	ParticipantCategoryC ParticipantCategory = "C"
	ParticipantCategoryD ParticipantCategory = "D"
	ParticipantCategoryE ParticipantCategory = "E"
	ParticipantCategoryF ParticipantCategory = "F"
	ParticipantCategoryG ParticipantCategory = "G"
	ParticipantCategoryH ParticipantCategory = "H"
)

// PolicyCode identifies a quota policy from the DICT rate limit catalog
type PolicyCode string

const (
	PolicyEntriesReadUserAntiscan        PolicyCode = "ENTRIES_READ_USER_ANTISCAN"
	PolicyEntriesReadUserAntiscanV2      PolicyCode = "ENTRIES_READ_USER_ANTISCAN_V2"
	PolicyEntriesReadParticipantAntiscan PolicyCode = "ENTRIES_READ_PARTICIPANT_ANTISCAN"
	PolicyEntriesStatisticsRead          PolicyCode = "ENTRIES_STATISTICS_READ"
	PolicyEntriesWrite                   PolicyCode = "ENTRIES_WRITE"
	PolicyEntriesUpdate                  PolicyCode = "ENTRIES_UPDATE"
	PolicyClaimsRead                     PolicyCode = "CLAIMS_READ"
	PolicyClaimsWrite                    PolicyCode = "CLAIMS_WRITE"
	PolicyClaimsListWithRole             PolicyCode = "CLAIMS_LIST_WITH_ROLE"
	PolicyClaimsListWithoutRole          PolicyCode = "CLAIMS_LIST_WITHOUT_ROLE"
	PolicySyncVerificationsWrite         PolicyCode = "SYNC_VERIFICATIONS_WRITE"
	PolicyCidsFilesWrite                 PolicyCode = "CIDS_FILES_WRITE"
	PolicyCidsFilesRead                  PolicyCode = "CIDS_FILES_READ"
	PolicyCidsEventsList                 PolicyCode = "CIDS_EVENTS_LIST"
	PolicyCidsEntriesRead                PolicyCode = "CIDS_ENTRIES_READ"
	PolicyInfractionReportsRead          PolicyCode = "INFRACTION_REPORTS_READ"
	PolicyInfractionReportsWrite         PolicyCode = "INFRACTION_REPORTS_WRITE"
	PolicyInfractionReportsListWithRole  PolicyCode = "INFRACTION_REPORTS_LIST_WITH_ROLE"
	PolicyInfractionReportsListNoRole    PolicyCode = "INFRACTION_REPORTS_LIST_WITHOUT_ROLE"
	PolicyKeysCheck                      PolicyCode = "KEYS_CHECK"
	PolicyRefundsRead                    PolicyCode = "REFUNDS_READ"
	PolicyRefundsWrite                   PolicyCode = "REFUNDS_WRITE"
	PolicyRefundListWithRole             PolicyCode = "REFUND_LIST_WITH_ROLE"
	PolicyRefundListWithoutRole          PolicyCode = "REFUND_LIST_WITHOUT_ROLE"
	PolicyFraudMarkersRead               PolicyCode = "FRAUD_MARKERS_READ"
	PolicyFraudMarkersWrite              PolicyCode = "FRAUD_MARKERS_WRITE"
	PolicyFraudMarkersList               PolicyCode = "FRAUD_MARKERS_LIST"
	PolicyPersonsStatisticsRead          PolicyCode = "PERSONS_STATISTICS_READ"
	PolicyPoliciesRead                   PolicyCode = "POLICIES_READ"
	PolicyPoliciesList                   PolicyCode = "POLICIES_LIST"
	PolicyEventList                      PolicyCode = "EVENT_LIST"
)

// Caller is the authenticated participant on whose behalf the engine decides.
// Category changes take effect on the next evaluation; nothing is stored on
// the buckets themselves.
type Caller struct {
	TenantID            string
	ParticipantCategory ParticipantCategory
}

// BucketIdentity uniquely identifies a quota bucket. It is comparable and is
// used directly as a map key; the canonical string form orders lock sets.
type BucketIdentity struct {
	PolicyCode PolicyCode `json:"policyCode" bson:"policyCode"`
	ScopeType  ScopeType  `json:"scopeType" bson:"scopeType"`
	ScopeKey   string     `json:"scopeKey" bson:"scopeKey"`
}

// CanonicalKey returns the deterministic ordering key used for lock
// acquisition and deduplication.
func (b BucketIdentity) CanonicalKey() string {
	return fmt.Sprintf("%s|%s|%s", b.PolicyCode, b.ScopeType, b.ScopeKey)
}

// BucketSnapshot is the persisted state of a quota bucket.
type BucketSnapshot struct {
	BucketIdentity `bson:",inline"`
	Tokens         float64   `json:"tokens" bson:"tokens"`
	LastRefillAt   time.Time `json:"lastRefillAt" bson:"lastRefillAt"`
}

// RateConfig is the effective capacity and refill rate of a bucket, derived
// from the catalog plus caller context at evaluation time.
type RateConfig struct {
	Capacity        float64
	RefillPerSecond float64
}

// Charge is one policy's claim against one bucket for a single decision.
// Negative cost represents a credit (payment refund).
type Charge struct {
	BucketIdentity
	Capacity        float64
	RefillPerSecond float64
	Cost            float64
}

// PolicyImpact records how one decision touched one bucket.
type PolicyImpact struct {
	PolicyCode      PolicyCode `json:"policyCode" bson:"policyCode"`
	ScopeType       ScopeType  `json:"scopeType" bson:"scopeType"`
	ScopeKey        string     `json:"scopeKey" bson:"scopeKey"`
	CostApplied     float64    `json:"costApplied" bson:"costApplied"`
	TokensBefore    float64    `json:"tokensBefore" bson:"tokensBefore"`
	TokensAfter     float64    `json:"tokensAfter" bson:"tokensAfter"`
	Capacity        float64    `json:"capacity" bson:"capacity"`
	RefillPerSecond float64    `json:"refillPerSecond" bson:"refillPerSecond"`
}

// SimulateOperationInput describes the operation a caller intends to perform
// and the outcome being simulated. Optional fields are pointers so "absent"
// is distinguishable from a zero value.
type SimulateOperationInput struct {
	Operation           Operation `json:"operation"`
	SimulatedStatusCode int       `json:"simulatedStatusCode"`
	PayerID             *string   `json:"payerId,omitempty"`
	KeyType             *KeyType  `json:"keyType,omitempty"`
	EndToEndID          *string   `json:"endToEndId,omitempty"`
	HasRoleFilter       *bool     `json:"hasRoleFilter,omitempty"`
}

// SimulateOperationResult is the engine's admission decision. A denial is a
// normal result, not an error: allowed=false with httpStatus 429.
type SimulateOperationResult struct {
	Allowed           bool           `json:"allowed"`
	HTTPStatus        int            `json:"httpStatus"`
	BlockedByPolicies []PolicyCode   `json:"blockedByPolicies"`
	Impacts           []PolicyImpact `json:"impacts"`
}

// RegisterPaymentSentInput identifies the payment whose preceding GET_ENTRY
// lookup should be refunded.
type RegisterPaymentSentInput struct {
	PayerID    string  `json:"payerId"`
	KeyType    KeyType `json:"keyType"`
	EndToEndID string  `json:"endToEndId"`
}

// RegisterPaymentSentReason explains a payment-credit outcome.
type RegisterPaymentSentReason string

const (
	ReasonCreditApplied            RegisterPaymentSentReason = "CREDIT_APPLIED"
	ReasonPaymentAlreadyRegistered RegisterPaymentSentReason = "PAYMENT_ALREADY_REGISTERED"
	ReasonEntryLookupNotEligible   RegisterPaymentSentReason = "ENTRY_LOOKUP_NOT_ELIGIBLE"
)

// RegisterPaymentSentResult is the outcome of a payment-credit request.
type RegisterPaymentSentResult struct {
	Credited bool                      `json:"credited"`
	Reason   RegisterPaymentSentReason `json:"reason"`
	Impacts  []PolicyImpact            `json:"impacts"`
}

// BucketState is a live projection of a bucket: stored state refilled to
// "now" without persisting.
type BucketState struct {
	BucketIdentity
	Tokens          float64   `json:"tokens"`
	Capacity        float64   `json:"capacity"`
	RefillPerSecond float64   `json:"refillPerSecond"`
	LastRefillAt    time.Time `json:"lastRefillAt"`
}

// BucketListFilter narrows ListBucketStates.
type BucketListFilter struct {
	PolicyCode *PolicyCode `json:"policyCode,omitempty"`
	ScopeType  *ScopeType  `json:"scopeType,omitempty"`
}

// OperationAttempt is the immutable audit record of one decision.
type OperationAttempt struct {
	TenantID            string    `bson:"tenantId"`
	Operation           Operation `bson:"operation"`
	SimulatedStatusCode int       `bson:"simulatedStatusCode"`
	Allowed             bool      `bson:"allowed"`
	HTTPStatus          int       `bson:"httpStatus"`
	RequestPayload      any       `bson:"requestPayload"`
}

// EntryLookupTrace records an allowed GET_ENTRY lookup; eligible traces may
// later be refunded through RegisterPaymentSent.
type EntryLookupTrace struct {
	TenantID            string  `bson:"tenantId"`
	PayerID             string  `bson:"payerId"`
	KeyType             KeyType `bson:"keyType"`
	EndToEndID          string  `bson:"endToEndId"`
	SimulatedStatusCode int     `bson:"simulatedStatusCode"`
	EligibleForCredit   bool    `bson:"eligibleForCredit"`
}

// EntryLookupTraceQuery identifies the lookup a payment refers to.
type EntryLookupTraceQuery struct {
	TenantID   string
	PayerID    string
	KeyType    KeyType
	EndToEndID string
}

// PaymentCredit is the unique record enforcing at most one refund per
// payment reference.
type PaymentCredit struct {
	TenantID      string  `bson:"tenantId"`
	PayerID       string  `bson:"payerId"`
	KeyType       KeyType `bson:"keyType"`
	EndToEndID    string  `bson:"endToEndId"`
	ImpactPayload any     `bson:"impactPayload"`
}

// ValidationError reports invalid caller input (missing field, malformed
// payer id, foreign scope key). It never indicates an engine fault.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is caller-input related.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

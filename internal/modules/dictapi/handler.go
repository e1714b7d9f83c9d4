// Package dictapi exposes the DICT rate-limit engine over HTTP: operation
// simulation, payment credits, and bucket state inspection.
package dictapi

import (
	"encoding/json"
	"net/http"

	"github.com/dict-gateway/go/internal/constants"
	"github.com/dict-gateway/go/internal/dict"
	"github.com/dict-gateway/go/internal/httputil"
	"github.com/dict-gateway/go/internal/middleware"
	"github.com/dict-gateway/go/internal/validation"
)

// SimulateRequest represents the operation simulation request body
type SimulateRequest struct {
	Operation           string  `json:"operation" validate:"required"`
	SimulatedStatusCode int     `json:"simulatedStatusCode" validate:"required"`
	PayerID             *string `json:"payerId,omitempty"`
	KeyType             *string `json:"keyType,omitempty"`
	EndToEndID          *string `json:"endToEndId,omitempty"`
	HasRoleFilter       *bool   `json:"hasRoleFilter,omitempty"`
}

// PaymentRequest represents the payment registration request body
type PaymentRequest struct {
	PayerID    string `json:"payerId" validate:"required"`
	KeyType    string `json:"keyType" validate:"required,oneof=CPF CNPJ EMAIL PHONE EVP"`
	EndToEndID string `json:"endToEndId" validate:"required"`
}

// Handler handles DICT rate-limit HTTP requests
type Handler struct {
	service *dict.RateLimitService
}

// NewHandler creates a new DICT handler
func NewHandler(service *dict.RateLimitService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (dict.Caller, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, r, constants.ErrInvalidTokenClaims)
	}
	return caller, ok
}

// writeEngineError maps engine errors: validation problems are the caller's
// fault, everything else (catalog contract violations, storage) is internal.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error, fallback constants.APIError) {
	if dict.IsValidationError(err) {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(err.Error()))
		return
	}
	httputil.WriteAPIError(w, r, fallback)
}

// Simulate evaluates one DICT operation against the caller's quota buckets.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	if err := validation.Validate(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(err.Error()))
		return
	}

	input := dict.SimulateOperationInput{
		Operation:           dict.Operation(req.Operation),
		SimulatedStatusCode: req.SimulatedStatusCode,
		PayerID:             req.PayerID,
		EndToEndID:          req.EndToEndID,
		HasRoleFilter:       req.HasRoleFilter,
	}
	if req.KeyType != nil {
		keyType := dict.KeyType(*req.KeyType)
		input.KeyType = &keyType
	}

	result, err := h.service.SimulateOperation(r.Context(), caller, input)
	if err != nil {
		writeEngineError(w, r, err, constants.ErrFailedToSimulate)
		return
	}

	if !result.Allowed {
		for _, policy := range result.BlockedByPolicies {
			middleware.ObserveRateLimitDenial(string(policy))
		}
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessOperationSimulated, result)
}

// RegisterPayment applies the anti-scan refund for a completed payment.
func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	if err := validation.Validate(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(err.Error()))
		return
	}

	result, err := h.service.RegisterPaymentSent(r.Context(), caller, dict.RegisterPaymentSentInput{
		PayerID:    req.PayerID,
		KeyType:    dict.KeyType(req.KeyType),
		EndToEndID: req.EndToEndID,
	})
	if err != nil {
		writeEngineError(w, r, err, constants.ErrFailedToRegisterCredit)
		return
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessPaymentRegistered, result)
}

// GetBucket returns the live projection of one bucket, identified by query
// parameters: policyCode, scopeType, scopeKey.
func (h *Handler) GetBucket(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	identity := dict.BucketIdentity{
		PolicyCode: dict.PolicyCode(query.Get("policyCode")),
		ScopeType:  dict.ScopeType(query.Get("scopeType")),
		ScopeKey:   query.Get("scopeKey"),
	}
	if identity.PolicyCode == "" || identity.ScopeType == "" || identity.ScopeKey == "" {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(
			"policyCode, scopeType and scopeKey query parameters are required"))
		return
	}

	state, err := h.service.GetBucketState(r.Context(), caller, identity)
	if err != nil {
		writeEngineError(w, r, err, constants.ErrFailedToFetchBucket)
		return
	}
	if state == nil {
		httputil.WriteAPIError(w, r, constants.ErrBucketNotFound)
		return
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessBucketFound, state)
}

// ListBuckets returns live projections of every bucket owned by the tenant,
// optionally filtered by policyCode and scopeType.
func (h *Handler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var filter dict.BucketListFilter
	if v := query.Get("policyCode"); v != "" {
		policyCode := dict.PolicyCode(v)
		filter.PolicyCode = &policyCode
	}
	if v := query.Get("scopeType"); v != "" {
		scopeType := dict.ScopeType(v)
		filter.ScopeType = &scopeType
	}

	states, err := h.service.ListBucketStates(r.Context(), caller, filter)
	if err != nil {
		writeEngineError(w, r, err, constants.ErrFailedToFetchBucket)
		return
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessBucketsListed, states)
}

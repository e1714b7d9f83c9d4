// Package pixapi exposes the PIX query-quota gate over HTTP.
package pixapi

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dict-gateway/go/internal/constants"
	"github.com/dict-gateway/go/internal/httputil"
	"github.com/dict-gateway/go/internal/leakybucket"
	"github.com/dict-gateway/go/internal/middleware"
	"github.com/dict-gateway/go/internal/validation"
)

// QueryRequest represents the Pix key query request body. Amount is a
// decimal string with up to two fraction digits, e.g. "150.00".
type QueryRequest struct {
	PixKey string `json:"pixKey" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// Handler handles PIX query HTTP requests
type Handler struct {
	service *leakybucket.Service
}

// NewHandler creates a new PIX handler
func NewHandler(service *leakybucket.Service) *Handler {
	return &Handler{service: service}
}

var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// parseAmount converts a decimal amount string to cents.
func parseAmount(amount string) (int64, bool) {
	if !amountPattern.MatchString(amount) {
		return 0, false
	}

	whole, fraction, _ := strings.Cut(amount, ".")
	for len(fraction) < 2 {
		fraction += "0"
	}

	wholeValue, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	fractionValue, err := strconv.ParseInt(fraction, 10, 64)
	if err != nil {
		return 0, false
	}
	return wholeValue*100 + fractionValue, true
}

// Query runs one quota-gated Pix key lookup. A RATE_LIMITED outcome is
// returned with HTTP 429; SUCCESS and FAILED both return 200.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, r, constants.ErrInvalidTokenClaims)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	if err := validation.Validate(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(err.Error()))
		return
	}

	amountCents, ok := parseAmount(req.Amount)
	if !ok {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(
			"amount must be a decimal string with up to two fraction digits"))
		return
	}

	result, err := h.service.QueryPixKey(r.Context(), caller.TenantID, leakybucket.QueryPixKeyInput{
		PixKey:      req.PixKey,
		AmountCents: amountCents,
	})
	if err != nil {
		httputil.WriteAPIError(w, r, constants.ErrFailedToQueryPixKey)
		return
	}

	if result.Status == leakybucket.StatusRateLimited {
		httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.APIResponse{
			Success: false,
			Code:    constants.CodeTooManyRequests,
			Message: result.Message,
			Data:    result,
		})
		return
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessPixQueryProcessed, result)
}

// Bucket returns the tenant's query-quota bucket, refilled to now.
func (h *Handler) Bucket(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, r, constants.ErrInvalidTokenClaims)
		return
	}

	state, err := h.service.GetBucketState(r.Context(), caller.TenantID)
	if err != nil {
		httputil.WriteAPIError(w, r, constants.ErrFailedToFetchBucket)
		return
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessPixBucketFound, state)
}

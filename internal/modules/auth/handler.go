package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dict-gateway/go/internal/constants"
	"github.com/dict-gateway/go/internal/httputil"
	"github.com/dict-gateway/go/internal/middleware"
	"github.com/dict-gateway/go/internal/tenant"
	"github.com/dict-gateway/go/internal/validation"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	ParticipantCode string `json:"participantCode" validate:"required"`
	Secret          string `json:"secret" validate:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token  string        `json:"token"`
	Tenant tenant.Tenant `json:"tenant"`
}

// Handler handles auth-related HTTP requests
type Handler struct {
	repo      tenant.Repository
	jwtSecret string
}

// NewHandler creates a new auth handler
func NewHandler(repo tenant.Repository, jwtSecret string) *Handler {
	return &Handler{
		repo:      repo,
		jwtSecret: jwtSecret,
	}
}

// Login authenticates a tenant by participant code and API secret and
// returns a JWT carrying the tenant identity and participant category.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	if err := validation.Validate(&req); err != nil {
		httputil.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(err.Error()))
		return
	}

	ctx := r.Context()

	t, err := h.repo.FindByParticipantCode(ctx, req.ParticipantCode)
	if err != nil {
		httputil.WriteAPIError(w, r, constants.ErrFailedToFindTenant)
		return
	}

	if t == nil || !t.CheckSecret(req.Secret) {
		httputil.WriteAPIError(w, r, constants.ErrInvalidCredentials)
		return
	}

	token, err := h.generateToken(t)
	if err != nil {
		httputil.WriteAPIError(w, r, constants.ErrFailedToSignToken)
		return
	}

	httputil.WriteAPISuccess(w, r, constants.SuccessLoginSuccess, AuthResponse{
		Token:  token,
		Tenant: *t,
	})
}

func (h *Handler) generateToken(t *tenant.Tenant) (string, error) {
	claims := middleware.JWTClaims{
		TenantID:            t.ID,
		ParticipantCode:     t.ParticipantCode,
		ParticipantCategory: string(t.ParticipantCategory),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/dict-gateway/go/internal/constants"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteAPIError writes a standardized error response
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	WriteJSON(w, apiErr.Status, APIResponse{
		Success: false,
		Code:    apiErr.Code,
		Message: apiErr.Message,
	})
}

// WriteAPISuccess writes a standardized success response with a data payload
func WriteAPISuccess(w http.ResponseWriter, r *http.Request, success constants.APISuccess, data any) {
	WriteJSON(w, success.Status, APIResponse{
		Success: true,
		Code:    success.Code,
		Data:    data,
	})
}

// WriteError writes an error response with the given status code
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, APIResponse{
		Success: false,
		Code:    errCode,
		Message: message,
	})
}

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/dict-gateway/go/internal/idempotency"
)

const IdempotencyKeyHeader = "X-Idempotency-Key"

// responseRecorder captures the response for idempotency storage
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.body.Write(b)
	return rr.ResponseWriter.Write(b)
}

// Idempotency handles idempotent requests
func (m *Manager) Idempotency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idempotencyKey := r.Header.Get(IdempotencyKeyHeader)

		// If no idempotency key, proceed normally
		if idempotencyKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		// Atomically insert a processing record to claim this key, so
		// concurrent retries cannot both execute the request.
		claimed, record, err := m.idempotencyRepo.ClaimKey(ctx, idempotencyKey)
		if err != nil {
			// On error, proceed with the request
			next.ServeHTTP(w, r)
			return
		}

		// If we didn't claim the key, return the existing response. A record
		// still in processing state means the original request is in flight;
		// let this one through rather than replaying an empty response.
		if !claimed && record != nil && record.StatusCode != idempotency.StatusProcessing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(record.StatusCode)
			json.NewEncoder(w).Encode(record.Response)
			return
		}

		// We claimed the key, process the request
		recorder := newResponseRecorder(w)
		next.ServeHTTP(recorder, r)

		// Store the response (synchronous to avoid data races)
		var response any
		if err := json.Unmarshal(recorder.body.Bytes(), &response); err == nil {
			m.idempotencyRepo.Save(context.Background(), idempotencyKey, response, recorder.statusCode)
		}
	})
}

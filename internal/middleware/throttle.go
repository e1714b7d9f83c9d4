package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dict-gateway/go/internal/constants"
	"github.com/dict-gateway/go/internal/httputil"
)

// Throttle is a coarse per-tenant request cap enforced in Redis, in front of
// the policy engine. It protects the service itself; the fine-grained DICT
// budgets are accounted by the engine after the simulated outcome is known.
type Throttle struct {
	client        *redis.Client
	bucketSize    int
	refillSeconds int
}

// ThrottleState is the outcome of one throttle check.
type ThrottleState struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     int64
}

// NewThrottle creates a Redis-backed throttle.
func NewThrottle(client *redis.Client, bucketSize, refillSeconds int) *Throttle {
	return &Throttle{
		client:        client,
		bucketSize:    bucketSize,
		refillSeconds: refillSeconds,
	}
}

// Lua script for an atomic token bucket with elapsed-time refill, safe
// across multiple gateway instances sharing one Redis.
var throttleScript = redis.NewScript(`
	local tokens_key = KEYS[1]
	local last_refill_key = KEYS[2]
	local bucket_size = tonumber(ARGV[1])
	local refill_seconds = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local tokens = tonumber(redis.call('GET', tokens_key) or bucket_size)
	local last_refill = tonumber(redis.call('GET', last_refill_key) or now)

	local elapsed = now - last_refill
	local refill_amount = math.floor(elapsed * bucket_size / refill_seconds)

	if refill_amount > 0 then
		tokens = math.min(bucket_size, tokens + refill_amount)
		last_refill = now
	end

	local allowed = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	end

	redis.call('SET', tokens_key, tokens)
	redis.call('SET', last_refill_key, last_refill)

	local ttl = refill_seconds * 2
	redis.call('EXPIRE', tokens_key, ttl)
	redis.call('EXPIRE', last_refill_key, ttl)

	return {allowed, tokens}
`)

// Check consumes one token for the tenant and reports whether the request
// may proceed.
func (t *Throttle) Check(ctx context.Context, tenantID string) (*ThrottleState, error) {
	tokensKey := fmt.Sprintf("throttle:%s:tokens", tenantID)
	lastRefillKey := fmt.Sprintf("throttle:%s:last_refill", tenantID)

	now := time.Now().Unix()
	result, err := throttleScript.Run(ctx, t.client, []string{tokensKey, lastRefillKey},
		t.bucketSize, t.refillSeconds, now).Int64Slice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected throttle script result: %v", result)
	}

	return &ThrottleState{
		Allowed:   result[0] == 1,
		Limit:     t.bucketSize,
		Remaining: int(result[1]),
		Reset:     now + int64(t.refillSeconds),
	}, nil
}

// Throttle gates requests on the per-tenant edge bucket. Redis failures let
// the request through; the policy engine is still the source of truth.
func (m *Manager) Throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.throttleEnabled {
			next.ServeHTTP(w, r)
			return
		}

		identifier := "anonymous"
		if caller, ok := CallerFromContext(r.Context()); ok {
			identifier = caller.TenantID
		}

		state, err := m.throttle.Check(r.Context(), identifier)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(state.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(state.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if !state.Allowed {
			httputil.WriteAPIError(w, r, constants.ErrTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"github.com/dict-gateway/go/internal/idempotency"
)

type Manager struct {
	idempotencyRepo *idempotency.Repository
	throttle        *Throttle
	throttleEnabled bool
}

func NewManager(idempotencyRepo *idempotency.Repository, throttle *Throttle, throttleEnabled bool) *Manager {
	return &Manager{
		idempotencyRepo: idempotencyRepo,
		throttle:        throttle,
		throttleEnabled: throttleEnabled,
	}
}

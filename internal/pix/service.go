// Package pix evaluates Pix key lookups against reference data. It is the
// external collaborator the leaky-bucket quota gate delegates to, executed
// inside the same tenant lock so quota and data stay consistent.
package pix

import (
	"context"

	"github.com/dict-gateway/go/internal/leakybucket"
)

// Service resolves Pix keys through a leaky-bucket transaction. It
// implements leakybucket.KeyLookup: success means the key exists and is
// ACTIVE; anything else carries a failure reason the quota gate charges for.
type Service struct{}

// NewService creates a lookup service.
func NewService() *Service {
	return &Service{}
}

// QueryPixKey resolves a key inside tx.
func (s *Service) QueryPixKey(ctx context.Context, tx leakybucket.Tx, pixKey string) (leakybucket.LookupResult, error) {
	key, err := tx.FindPixKeyByKey(ctx, pixKey)
	if err != nil {
		return leakybucket.LookupResult{}, err
	}

	if key == nil {
		return leakybucket.LookupResult{
			Success:       false,
			PixKeyFound:   false,
			FailureReason: leakybucket.ReasonKeyNotFound,
			Message:       "Pix key not found",
		}, nil
	}

	if key.Status != leakybucket.KeyActive {
		return leakybucket.LookupResult{
			Success:       false,
			PixKeyFound:   true,
			OwnerName:     key.OwnerName,
			BankName:      key.BankName,
			FailureReason: leakybucket.ReasonKeyInactive,
			Message:       "Pix key is inactive",
		}, nil
	}

	return leakybucket.LookupResult{
		Success:     true,
		PixKeyFound: true,
		OwnerName:   key.OwnerName,
		BankName:    key.BankName,
		Message:     "Pix key found successfully",
	}, nil
}

// Package tenant manages the participants registered with the gateway:
// their credentials for API access and the throughput category that drives
// participant-scoped rate limits.
package tenant

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dict-gateway/go/internal/dict"
)

// Tenant is one registered participant institution.
type Tenant struct {
	ID                  string                   `bson:"_id" json:"id"`
	Name                string                   `bson:"name" json:"name"`
	ParticipantCode     string                   `bson:"participantCode" json:"participantCode"`
	SecretHash          string                   `bson:"secretHash" json:"-"`
	ParticipantCategory dict.ParticipantCategory `bson:"participantCategory" json:"participantCategory"`
	CreatedAt           time.Time                `bson:"createdAt" json:"createdAt"`
}

// Caller converts the tenant into the identity the rate-limit engine scopes by.
func (t *Tenant) Caller() dict.Caller {
	return dict.Caller{
		TenantID:            t.ID,
		ParticipantCategory: t.ParticipantCategory,
	}
}

// CheckSecret compares the provided secret with the stored bcrypt hash.
func (t *Tenant) CheckSecret(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(t.SecretHash), []byte(secret)) == nil
}

// HashSecret hashes an API secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Repository stores tenants. Lookups return (nil, nil) when no tenant matches.
type Repository interface {
	FindByParticipantCode(ctx context.Context, code string) (*Tenant, error)
	FindByID(ctx context.Context, id string) (*Tenant, error)
	Upsert(ctx context.Context, t Tenant) error
}

package tenant

import (
	"context"
	"time"

	"github.com/dict-gateway/go/internal/dict"
)

// DemoSeed is a provisioning record for one demo tenant.
type DemoSeed struct {
	Tenant Tenant
	Secret string
}

// DemoTenants returns the tenants provisioned on a fresh deployment: one
// high-throughput category A participant and one category H participant so
// both ends of the rate table are exercisable out of the box.
func DemoTenants() []DemoSeed {
	now := time.Now()
	return []DemoSeed{
		{
			Tenant: Tenant{
				ID:                  "tenant-alpha-bank",
				Name:                "Alpha Bank",
				ParticipantCode:     "12345678",
				ParticipantCategory: dict.ParticipantCategoryA,
				CreatedAt:           now,
			},
			Secret: "alpha-secret",
		},
		{
			Tenant: Tenant{
				ID:                  "tenant-omega-credit",
				Name:                "Omega Credit Union",
				ParticipantCode:     "87654321",
				ParticipantCategory: dict.ParticipantCategoryH,
				CreatedAt:           now,
			},
			Secret: "omega-secret",
		},
	}
}

// SeedDemoTenants hashes each demo secret and upserts the tenant. Existing
// tenants are overwritten so a redeploy resets demo credentials.
func SeedDemoTenants(ctx context.Context, repo Repository) error {
	for _, seed := range DemoTenants() {
		hash, err := HashSecret(seed.Secret)
		if err != nil {
			return err
		}
		seed.Tenant.SecretHash = hash
		if err := repo.Upsert(ctx, seed.Tenant); err != nil {
			return err
		}
	}
	return nil
}

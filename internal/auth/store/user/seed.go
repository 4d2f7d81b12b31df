package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	accessmodels "factgate/internal/access/models"
	"factgate/internal/auth/models"
	id "factgate/pkg/domain"
	"factgate/pkg/secrets"
)

// SeedIdentity describes one bootstrap credential. Seeding exists to stand up
// demo and development environments; it is a fixture, not core logic, and
// must not run against production directories.
type SeedIdentity struct {
	Email             string
	Username          string
	Password          string
	Role              accessmodels.Role
	TenantID          id.TenantID
	MaxClassification accessmodels.DataClassification
	Entities          []string
	Periods           []string
	CostCenters       []string
	Department        string
	Permissions       []accessmodels.Permission
}

// DefaultSeed is the demo identity set: a global admin plus a spread of
// tenant-scoped roles with partially-populated visibility dimensions.
func DefaultSeed() []SeedIdentity {
	return []SeedIdentity{
		{
			Email:             "admin@factgate.local",
			Username:          "admin",
			Password:          "admin123",
			Role:              accessmodels.RoleAdmin,
			MaxClassification: accessmodels.ClassificationRestricted,
		},
		{
			Email:             "owner@acme.example.com",
			Username:          "acme-owner",
			Password:          "owner123",
			Role:              accessmodels.RoleTenantAdmin,
			TenantID:          "tenant_acme",
			MaxClassification: accessmodels.ClassificationRestricted,
			Entities:          []string{"Company_A", "Company_B"},
			Department:        "Finance",
		},
		{
			Email:             "analyst@acme.example.com",
			Username:          "acme-analyst",
			Password:          "analyst123",
			Role:              accessmodels.RoleAnalyst,
			TenantID:          "tenant_acme",
			MaxClassification: accessmodels.ClassificationConfidential,
			Entities:          []string{"Company_A"},
			Periods:           []string{"2023", "Q1_2024"},
			CostCenters:       []string{"CC-100"},
			Department:        "FP&A",
		},
		{
			Email:             "viewer@acme.example.com",
			Username:          "acme-viewer",
			Password:          "viewer123",
			Role:              accessmodels.RoleViewer,
			TenantID:          "tenant_acme",
			MaxClassification: accessmodels.ClassificationPublic,
			Entities:          []string{"Company_A"},
			Department:        "Sales",
		},
	}
}

// Seed hashes each identity's password and saves it to the directory.
func Seed(ctx context.Context, store *InMemoryStore, identities []SeedIdentity, now time.Time) error {
	for _, identity := range identities {
		hash, err := secrets.Hash(identity.Password)
		if err != nil {
			return err
		}
		credential := &models.Credential{
			UserID:             id.UserID(uuid.New()),
			Email:              identity.Email,
			Username:           identity.Username,
			PasswordHash:       hash,
			Role:               identity.Role,
			TenantID:           identity.TenantID,
			MaxClassification:  identity.MaxClassification,
			AccessibleEntities: identity.Entities,
			AccessiblePeriods:  identity.Periods,
			CostCenters:        identity.CostCenters,
			Department:         identity.Department,
			Permissions:        identity.Permissions,
			CreatedAt:          now,
		}
		if err := store.Save(ctx, credential); err != nil {
			return err
		}
	}
	return nil
}

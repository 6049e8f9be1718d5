package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/models"
	"github.com/Skotchmaster/travel_social/pkg/hash"
	"github.com/Skotchmaster/travel_social/pkg/logging"
)

// SeedAccount is a bootstrap login created by Seed.
type SeedAccount struct {
	Username string
	Password string
	Role     string
}

var DefaultSeedAccounts = []SeedAccount{
	{Username: "admin", Password: "admin123", Role: domain.RoleAdmin},
	{Username: "vivumater", Password: "user123", Role: domain.RoleUser},
}

var userRolePermissions = []domain.PermissionCode{
	domain.PermUserRead,
	domain.PermUserUpdate,
	domain.PermPostCreate,
	domain.PermPostUpdate,
	domain.PermPostDelete,
	domain.PermLocationView,
}

// Seed creates the permission catalogue, the ADMIN and USER roles and the
// given accounts. It does nothing when any role already exists.
func (r *GormRepo) Seed(ctx context.Context, accounts []SeedAccount) error {
	l := logging.FromContext(ctx).With("component", "seeder")

	var roles int64
	if err := r.DB.WithContext(ctx).Model(&models.Role{}).Count(&roles).Error; err != nil {
		return storeErr(err)
	}
	if roles > 0 {
		l.Info("seed_skipped", "reason", "roles already present")
		return nil
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms := make(map[domain.PermissionCode]models.Permission)
		for _, code := range domain.PermissionCodes() {
			p := models.Permission{Code: string(code)}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("create permission %s: %w", code, err)
			}
			perms[code] = p
		}

		pick := func(codes []domain.PermissionCode) []models.Permission {
			out := make([]models.Permission, 0, len(codes))
			for _, c := range codes {
				out = append(out, perms[c])
			}
			return out
		}

		byName := map[string]*models.Role{
			domain.RoleAdmin: {Name: domain.RoleAdmin, Permissions: pick(domain.PermissionCodes())},
			domain.RoleUser:  {Name: domain.RoleUser, Permissions: pick(userRolePermissions)},
		}
		for _, name := range []string{domain.RoleAdmin, domain.RoleUser} {
			if err := tx.Create(byName[name]).Error; err != nil {
				return fmt.Errorf("create role %s: %w", name, err)
			}
		}

		for _, acc := range accounts {
			role, ok := byName[acc.Role]
			if !ok {
				return fmt.Errorf("seed account %s: unknown role %s", acc.Username, acc.Role)
			}
			pwHash, err := hash.HashPassword(acc.Password)
			if err != nil {
				return err
			}
			u := models.User{
				Username:     acc.Username,
				PasswordHash: pwHash,
				Status:       string(domain.StatusActive),
				Roles:        []models.Role{{ID: role.ID, Name: role.Name}},
			}
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("create user %s: %w", acc.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		return storeErr(err)
	}

	l.Info("seed_completed", "permissions", len(domain.PermissionCodes()), "accounts", len(accounts))
	return nil
}

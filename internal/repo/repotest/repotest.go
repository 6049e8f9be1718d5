// Package repotest builds throwaway sqlite databases with the auth schema.
package repotest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/models"
	"github.com/Skotchmaster/travel_social/pkg/hash"
)

// NewDB opens a private in-memory database. A single connection keeps
// concurrent transactions serialized the way a real row lock would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Role creates a role carrying the given permission codes.
func Role(t *testing.T, db *gorm.DB, name string, codes ...domain.PermissionCode) models.Role {
	t.Helper()

	role := models.Role{Name: name}
	for _, c := range codes {
		p := models.Permission{Code: string(c)}
		require.NoError(t, db.Where(&p).FirstOrCreate(&p).Error)
		role.Permissions = append(role.Permissions, p)
	}
	require.NoError(t, db.Create(&role).Error)
	return role
}

// User creates an account with a cheap bcrypt hash of password.
func User(t *testing.T, db *gorm.DB, username, password string, status domain.Status, roles ...models.Role) models.User {
	t.Helper()

	h, err := hash.HashPasswordCost(password, hash.TestCost)
	require.NoError(t, err)

	u := models.User{
		Username:     username,
		PasswordHash: h,
		Status:       string(status),
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.Role{ID: r.ID, Name: r.Name})
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/models"
	"github.com/Skotchmaster/travel_social/pkg/hash"
)

// FindByIdentifier loads a principal with its role graph. Soft-deleted
// accounts are returned with status deleted so callers can tell them apart
// from unknown identifiers.
func (r *GormRepo) FindByIdentifier(ctx context.Context, username string) (*domain.Principal, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Unscoped().
		Preload("Roles.Permissions").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return user.ToDomain(), nil
}

func (r *GormRepo) VerifySecret(p *domain.Principal, plaintext string) bool {
	if p == nil || p.PasswordHash == "" {
		return false
	}
	return hash.CheckPassword(p.PasswordHash, plaintext)
}

// SoftDeleteUser marks the account deleted and revokes every refresh token it
// still owns, in one transaction.
func (r *GormRepo) SoftDeleteUser(ctx context.Context, id uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked = ?", id, false).
			Update("revoked", true).Error
	})
	return storeErr(err)
}

package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/models"
)

func newRefreshModel(rec domain.RefreshRecord) *models.RefreshToken {
	return &models.RefreshToken{
		TokenHash: Sha256Hex(rec.Token),
		UserID:    rec.PrincipalID,
		JTI:       rec.ID,
		ExpiresAt: rec.ExpiresAt.Unix(),
		Revoked:   rec.Revoked,
	}
}

func (r *GormRepo) Insert(ctx context.Context, rec domain.RefreshRecord) error {
	return storeErr(r.DB.WithContext(ctx).Create(newRefreshModel(rec)).Error)
}

func (r *GormRepo) FindByToken(ctx context.Context, token string) (*domain.RefreshRecord, error) {
	var m models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("token_hash = ?", Sha256Hex(token)).
		First(&m).Error
	if err != nil {
		return nil, storeErr(err)
	}
	rec := m.ToDomain()
	rec.Token = token
	return rec, nil
}

// CompareAndRevoke flips revoked from false to true. It reports true only
// for the single caller whose update changed the row.
func (r *GormRepo) CompareAndRevoke(ctx context.Context, token string) (bool, error) {
	won, err := compareAndRevoke(r.DB.WithContext(ctx), token)
	return won, storeErr(err)
}

func compareAndRevoke(db *gorm.DB, token string) (bool, error) {
	res := db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", Sha256Hex(token), false).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Rotate revokes oldToken and records next atomically. When another caller
// already revoked oldToken nothing is written and won is false.
func (r *GormRepo) Rotate(ctx context.Context, oldToken string, next domain.RefreshRecord) (won bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := compareAndRevoke(tx, oldToken)
		if err != nil || !ok {
			return err
		}
		if err := tx.Create(newRefreshModel(next)).Error; err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	return won, nil
}

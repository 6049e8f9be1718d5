package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"net"

	"gorm.io/gorm"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/models"
)

var ErrNotFound = errors.New("record not found")

// GormRepo is the credential store and the refresh token ledger. Every
// method is safe for concurrent use; cross-instance ordering comes from the
// database, never from process memory.
type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return storeErr(r.DB.WithContext(ctx).AutoMigrate(models.All()...))
}

// Sha256Hex is the ledger key of a refresh token.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// storeErr classifies driver failures. Timeouts and broken connections are
// retriable, a missing row becomes ErrNotFound.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr):
		return apperr.Wrap(apperr.CodeStoreUnavailable, err)
	}
	return err
}

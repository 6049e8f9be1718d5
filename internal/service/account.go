package service

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/events"
	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/pkg/logging"
)

var ErrAccountNotFound = apperr.ErrAccountNotFound

type AccountStore interface {
	SoftDeleteUser(ctx context.Context, id uint) error
}

// AccountService handles administrative account changes that have to
// invalidate sessions.
type AccountService struct {
	Store        AccountStore
	Events       events.Publisher
	StoreTimeout time.Duration
}

// Delete soft-deletes the account and revokes all of its refresh tokens.
// Access tokens already issued stop working at the next request because the
// authenticator re-loads the principal.
func (s *AccountService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.delete_account", "user_id", id)

	sctx, cancel := storeContext(ctx, s.StoreTimeout)
	defer cancel()

	if err := s.Store.SoftDeleteUser(sctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("delete_account_failed", "status", 404, "reason", "unknown account")
			return ErrAccountNotFound
		}
		l.Error("delete_account_failed", "status", 503, "error", err)
		return storeFailure(err)
	}

	if s.Events != nil {
		ev := events.Event{Type: events.TypeAccountDeleted, PrincipalID: id, At: time.Now().UTC()}
		if err := s.Events.Publish(ctx, ev); err != nil {
			l.Warn("event_publish_failed", "type", ev.Type, "error", err)
		}
	}
	l.Info("account_deleted")
	return nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/events"
)

func TestAccountService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accounts := &AccountService{Store: env.repo, Events: env.events}

	pair, err := env.svc.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)

	require.NoError(t, accounts.Delete(ctx, env.adminID))
	assert.Equal(t, 1, env.events.count(events.TypeAccountDeleted))

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	_, err = env.svc.Authenticate(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, apperr.ErrAccountDeleted)

	assert.ErrorIs(t, accounts.Delete(ctx, env.adminID), ErrAccountNotFound)
	assert.ErrorIs(t, accounts.Delete(ctx, 424242), ErrAccountNotFound)
}

type stalledAccounts struct{}

func (stalledAccounts) SoftDeleteUser(ctx context.Context, _ uint) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAccountService_DeleteHonorsStoreTimeout(t *testing.T) {
	accounts := &AccountService{Store: stalledAccounts{}, StoreTimeout: 20 * time.Millisecond}

	err := accounts.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.True(t, apperr.Retriable(err))
}

func TestStoreContext(t *testing.T) {
	ctx, cancel := storeContext(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	ctx, cancel = storeContext(context.Background(), 0)
	_, ok = ctx.Deadline()
	assert.False(t, ok)
	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

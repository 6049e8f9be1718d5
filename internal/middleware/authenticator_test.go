package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/authctx"
	"github.com/Skotchmaster/travel_social/internal/authority"
	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/internal/repo/repotest"
	"github.com/Skotchmaster/travel_social/internal/revocation"
	"github.com/Skotchmaster/travel_social/pkg/logging"
	"github.com/Skotchmaster/travel_social/pkg/tokens"
)

type fixture struct {
	auth  *Authenticator
	cache *revocation.MemoryCache
	codec *tokens.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := repotest.NewDB(t)
	admin := repotest.Role(t, db, domain.RoleAdmin, domain.PermUserManage, domain.PermLocationManage)
	user := repotest.Role(t, db, domain.RoleUser, domain.PermPostCreate)
	repotest.User(t, db, "admin", "admin123", domain.StatusActive, admin)
	repotest.User(t, db, "vivumater", "user123", domain.StatusActive, user)
	repotest.User(t, db, "banned", "secret", domain.StatusBanned, user)

	codec, err := tokens.NewCodec(tokens.Keys{
		Access:  tokens.Key{Secret: []byte("mw-access"), TTL: 15 * time.Minute},
		Refresh: tokens.Key{Secret: []byte("mw-refresh"), TTL: time.Hour},
		Reset:   tokens.Key{Secret: []byte("mw-reset"), TTL: time.Minute},
	})
	require.NoError(t, err)

	cache := revocation.NewMemoryCache()
	return &fixture{
		auth:  &Authenticator{Users: repo.New(db), Cache: cache, Codec: codec, StoreTimeout: time.Second},
		cache: cache,
		codec: codec,
	}
}

// run passes a request through the authenticator and reports what the next
// handler saw.
func (f *fixture) run(t *testing.T, header string, ctx context.Context) (*authctx.Authenticated, bool, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var (
		seen   *authctx.Authenticated
		called bool
	)
	err := f.auth.Middleware()(func(c echo.Context) error {
		called = true
		seen, _ = authctx.FromContext(c.Request().Context())
		return nil
	})(c)
	return seen, called, err
}

func (f *fixture) access(t *testing.T, subject string) string {
	t.Helper()
	raw, err := f.codec.Issue(subject, tokens.ClassAccess, nil)
	require.NoError(t, err)
	return raw
}

func TestAuthenticator_AttachesPrincipal(t *testing.T) {
	f := newFixture(t)

	seen, called, err := f.run(t, "Bearer "+f.access(t, "admin"), context.Background())
	require.NoError(t, err)
	require.True(t, called)
	require.NotNil(t, seen)
	assert.Equal(t, "admin", seen.Principal.Username)
	assert.True(t, seen.Authorities.Has("ROLE_ADMIN"))
	assert.True(t, seen.Authorities.HasPermission(domain.PermUserManage))
	assert.NotEmpty(t, seen.TokenID)
}

func TestAuthenticator_PassThroughCases(t *testing.T) {
	f := newFixture(t)

	refresh, err := f.codec.Issue("admin", tokens.ClassRefresh, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "basic auth", header: "Basic YWRtaW46YWRtaW4xMjM="},
		{name: "garbage bearer", header: "Bearer not-a-token"},
		{name: "refresh token as access", header: "Bearer " + refresh},
		{name: "unknown subject", header: "Bearer " + f.access(t, "ghost")},
		{name: "banned account", header: "Bearer " + f.access(t, "banned")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, called, err := f.run(t, tt.header, context.Background())
			require.NoError(t, err)
			assert.True(t, called)
			assert.Nil(t, seen)
		})
	}
}

func TestAuthenticator_LogsRejectedTokenAtInfo(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	ctx := logging.IntoContext(context.Background(), logging.NewWriter(&buf, "info"))

	seen, called, err := f.run(t, "Bearer not-a-token", ctx)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, seen)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), buf.String())
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "auth_skipped", rec["msg"])
	assert.Equal(t, "access token invalid", rec["reason"])
	assert.NotContains(t, buf.String(), "signature")
}

func TestAuthenticator_RevocationWins(t *testing.T) {
	f := newFixture(t)
	tok := f.access(t, "admin")
	require.NoError(t, f.cache.Set(context.Background(), tok, time.Minute))

	seen, called, err := f.run(t, "Bearer "+tok, context.Background())
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
	assert.False(t, called)
	assert.Nil(t, seen)
}

func TestAuthenticator_KeepsExistingPrincipal(t *testing.T) {
	f := newFixture(t)
	existing := &authctx.Authenticated{
		Principal:   &domain.Principal{Username: "vivumater"},
		Authorities: authority.NewSet("ROLE_USER"),
	}
	ctx := authctx.WithAuthenticated(context.Background(), existing)

	seen, called, err := f.run(t, "Bearer "+f.access(t, "admin"), ctx)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Same(t, existing, seen)
}

type failingCache struct{}

func (failingCache) Exists(context.Context, string) (bool, error) {
	return false, context.DeadlineExceeded
}

func TestAuthenticator_CacheOutage(t *testing.T) {
	f := newFixture(t)
	f.auth.Cache = failingCache{}

	_, called, err := f.run(t, "Bearer "+f.access(t, "admin"), context.Background())
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.False(t, called)

	_, called, err = f.run(t, "", context.Background())
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
}

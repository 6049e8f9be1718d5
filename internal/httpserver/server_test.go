package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/events"
	"github.com/Skotchmaster/travel_social/internal/metrics"
	"github.com/Skotchmaster/travel_social/internal/middleware"
	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/internal/repo/repotest"
	"github.com/Skotchmaster/travel_social/internal/revocation"
	"github.com/Skotchmaster/travel_social/internal/service"
	"github.com/Skotchmaster/travel_social/internal/transport"
	"github.com/Skotchmaster/travel_social/pkg/logging"
	"github.com/Skotchmaster/travel_social/pkg/tokens"
)

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	userID uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := repotest.NewDB(t)
	admin := repotest.Role(t, db, domain.RoleAdmin, domain.PermissionCodes()...)
	user := repotest.Role(t, db, domain.RoleUser, domain.PermUserRead, domain.PermLocationView)
	repotest.User(t, db, "admin", "admin123", domain.StatusActive, admin)
	u := repotest.User(t, db, "vivumater", "user123", domain.StatusActive, user)

	codec, err := tokens.NewCodec(tokens.Keys{
		Access:  tokens.Key{Secret: []byte("http-access"), TTL: 15 * time.Minute},
		Refresh: tokens.Key{Secret: []byte("http-refresh"), TTL: 24 * time.Hour},
		Reset:   tokens.Key{Secret: []byte("http-reset"), TTL: 15 * time.Minute},
	})
	require.NoError(t, err)

	rp := repo.New(db)
	cache := revocation.NewMemoryCache()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	e := New(&Deps{
		Logger: logging.Discard(),
		AuthHandler: &AuthHTTP{
			Sessions: &service.SessionService{
				Users:   rp,
				Ledger:  rp,
				Cache:   cache,
				Codec:   codec,
				Events:  events.Nop{},
				Metrics: m,
			},
			Accounts: &service.AccountService{Store: rp, Events: events.Nop{}},
		},
		Authenticator:  &middleware.Authenticator{Users: rp, Cache: cache, Codec: codec, Metrics: m},
		Metrics:        m,
		MetricsHandler: metrics.HandlerFor(reg),
	})
	return &testEnv{T: t, E: e, userID: u.ID}
}

func (env *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func bearer(tok string) map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + tok}
}

func (env *testEnv) login(username, password string) transport.AuthenticationResponse {
	rec := env.do(http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Username: username, Password: password}, nil)
	require.Equal(env.T, http.StatusOK, rec.Code, rec.Body.String())
	var out transport.AuthenticationResponse
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) transport.ErrorResponse {
	t.Helper()
	var out transport.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	res := env.login("admin", "admin123")
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(900), res.ExpiresIn)
	assert.Equal(t, "admin", res.Username)
	assert.Equal(t, []string{"ADMIN"}, res.Roles)

	rec := env.do(http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Username: "admin", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, 1004, body.Code)
	assert.Equal(t, "Username or password is incorrect", body.Message)

	rec = env.do(http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Username: "admin", Password: "wrong"},
		map[string]string{"Accept-Language": "vi-VN,vi;q=0.9"})
	assert.Equal(t, "Tên đăng nhập hoặc mật khẩu không chính xác", decodeError(t, rec).Message)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1001, decodeError(t, rec).Code)
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	first := env.login("vivumater", "user123")

	rec := env.do(http.MethodPost, "/api/v1/auth/refresh-token", transport.RefreshRequest{RefreshToken: first.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second transport.AuthenticationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	rec = env.do(http.MethodPost, "/api/v1/auth/refresh-token", transport.RefreshRequest{RefreshToken: first.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1007, decodeError(t, rec).Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/refresh-token", transport.RefreshRequest{}, nil)
	assert.Equal(t, 1007, decodeError(t, rec).Code)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	res := env.login("admin", "admin123")

	rec := env.do(http.MethodPost, "/api/v1/auth/logout", transport.LogoutRequest{RefreshToken: res.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1007, decodeError(t, rec).Code)

	rec = env.do(http.MethodGet, "/api/v1/admin/who-am-i", nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/logout", transport.LogoutRequest{RefreshToken: res.RefreshToken}, bearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/admin/who-am-i", nil, bearer(res.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1010, decodeError(t, rec).Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/refresh-token", transport.RefreshRequest{RefreshToken: res.RefreshToken}, nil)
	assert.Equal(t, 1007, decodeError(t, rec).Code)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", "admin123")
	user := env.login("vivumater", "user123")

	rec := env.do(http.MethodGet, "/api/v1/admin/who-am-i", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1002, decodeError(t, rec).Code)

	rec = env.do(http.MethodGet, "/api/v1/admin/who-am-i", nil, bearer("garbage"))
	assert.Equal(t, 1002, decodeError(t, rec).Code)

	rec = env.do(http.MethodGet, "/api/v1/admin/who-am-i", nil, bearer(user.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var who transport.WhoAmIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(t, []string{"LOCATION_VIEW", "ROLE_USER", "USER_READ"}, who.Authorities)

	rec = env.do(http.MethodGet, "/api/v1/admin/dashboard", nil, bearer(user.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1003, decodeError(t, rec).Code)

	rec = env.do(http.MethodGet, "/api/v1/admin/dashboard", nil, bearer(admin.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	path := "/api/v1/admin/users/" + itoa(env.userID)
	rec = env.do(http.MethodDelete, path, nil, bearer(user.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, path, nil, bearer(admin.AccessToken))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/admin/who-am-i", nil, bearer(user.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/refresh-token", transport.RefreshRequest{RefreshToken: user.RefreshToken}, nil)
	assert.Equal(t, 1007, decodeError(t, rec).Code)

	rec = env.do(http.MethodDelete, path, nil, bearer(admin.AccessToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, transport.ErrorResponse{Code: 1011, Message: "Account not found"}, decodeError(t, rec))

	rec = env.do(http.MethodDelete, path, nil, map[string]string{
		echo.HeaderAuthorization:  "Bearer " + admin.AccessToken,
		"Accept-Language": "vi",
	})
	assert.Equal(t, "Không tìm thấy tài khoản", decodeError(t, rec).Message)

	rec = env.do(http.MethodDelete, "/api/v1/admin/users/abc", nil, bearer(admin.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	for _, p := range []string{"/health/live", "/health/ready", "/api/v1/health"} {
		rec := env.do(http.MethodGet, p, nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}

	env.login("admin", "admin123")
	rec := env.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_session_operations_total{operation="login",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/authctx"
	"github.com/Skotchmaster/travel_social/internal/authority"
	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/metrics"
	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/pkg/logging"
	"github.com/Skotchmaster/travel_social/pkg/tokens"
)

type PrincipalLoader interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error)
}

type RevocationChecker interface {
	Exists(ctx context.Context, token string) (bool, error)
}

// Authenticator attaches the principal behind a bearer access token to the
// request context. It never rejects a request for lacking or carrying a bad
// token; that is left to the guards. Only a revoked token or a store outage
// stops the request here.
type Authenticator struct {
	Users        PrincipalLoader
	Cache        RevocationChecker
	Codec        *tokens.Codec
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
}

// BearerToken returns the token of an Authorization header, or "" when the
// header does not carry a bearer credential.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(tokens.BearerPrefix) || !strings.EqualFold(header[:len(tokens.BearerPrefix)], tokens.BearerPrefix) {
		return ""
	}
	return tokens.StripBearer(header)
}

func (a *Authenticator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.StoreTimeout)
}

func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()
			l := logging.FromContext(ctx).With("mw", "authenticator")

			raw := BearerToken(req.Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				a.Metrics.AuthDecision("anonymous")
				return next(c)
			}

			sctx, cancel := a.storeCtx(ctx)
			defer cancel()

			revoked, err := a.Cache.Exists(sctx, raw)
			if err != nil {
				l.Error("auth_failed", "status", 503, "reason", "revocation cache", "error", err)
				a.Metrics.AuthDecision("error")
				return apperr.Wrap(apperr.CodeStoreUnavailable, err)
			}
			if revoked {
				l.Warn("auth_failed", "status", 401, "reason", "access token revoked")
				a.Metrics.AuthDecision("revoked")
				return apperr.ErrTokenRevoked
			}

			dec, err := a.Codec.Parse(raw, tokens.ClassAccess)
			if err != nil {
				reason := "access token invalid"
				if errors.Is(err, tokens.ErrTokenExpired) {
					reason = "access token expired"
				}
				l.Warn("auth_skipped", "reason", reason)
				a.Metrics.AuthDecision("invalid")
				return next(c)
			}

			if _, ok := authctx.FromContext(ctx); ok {
				return next(c)
			}

			p, err := a.Users.FindByIdentifier(sctx, dec.Subject)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					l.Warn("auth_skipped", "reason", "subject not found", "username", dec.Subject)
					a.Metrics.AuthDecision("invalid")
					return next(c)
				}
				l.Error("auth_failed", "status", 503, "reason", "credential store", "error", err)
				a.Metrics.AuthDecision("error")
				return apperr.Wrap(apperr.CodeStoreUnavailable, err)
			}
			if p.Status != domain.StatusActive {
				l.Warn("auth_skipped", "reason", "account not active", "username", p.Username, "account_status", p.Status)
				a.Metrics.AuthDecision("invalid")
				return next(c)
			}

			auth := &authctx.Authenticated{
				Principal:   p,
				Authorities: authority.Resolve(p),
				TokenID:     dec.ID,
			}
			ctx = authctx.WithAuthenticated(ctx, auth)
			ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", p.ID))
			c.SetRequest(req.WithContext(ctx))
			a.Metrics.AuthDecision("authenticated")
			return next(c)
		}
	}
}

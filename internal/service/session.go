package service

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/events"
	"github.com/Skotchmaster/travel_social/internal/metrics"
	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/pkg/logging"
	"github.com/Skotchmaster/travel_social/pkg/tokens"
)

type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error)
	VerifySecret(p *domain.Principal, plaintext string) bool
}

type Ledger interface {
	Insert(ctx context.Context, rec domain.RefreshRecord) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshRecord, error)
	CompareAndRevoke(ctx context.Context, token string) (bool, error)
	Rotate(ctx context.Context, oldToken string, next domain.RefreshRecord) (bool, error)
}

type RevocationCache interface {
	Set(ctx context.Context, token string, ttl time.Duration) error
	Exists(ctx context.Context, token string) (bool, error)
}

// SessionPair is what a successful login or refresh returns.
type SessionPair struct {
	AccessToken   string
	RefreshToken  string
	ExpiresIn     int64
	PrincipalID   uint
	PrincipalName string
	RoleNames     []string
}

// SessionService issues, rotates and revokes sessions. It keeps no mutable
// state of its own; concurrent refreshes of one token are arbitrated by the
// ledger's compare-and-set.
type SessionService struct {
	Users        CredentialStore
	Ledger       Ledger
	Cache        RevocationCache
	Codec        *tokens.Codec
	Events       events.Publisher
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// storeContext bounds collaborator calls by timeout on top of ctx. A
// non-positive timeout leaves only the caller's deadline.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *SessionService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return storeContext(ctx, s.StoreTimeout)
}

func (s *SessionService) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	ev.At = s.now().UTC()
	if err := s.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "error", err)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.CodeOf(err).String()
}

// storeFailure classifies a collaborator error that is not a lookup miss.
func storeFailure(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.CodeOf(err), err)
}

func statusError(st domain.Status) error {
	switch st {
	case domain.StatusActive:
		return nil
	case domain.StatusBanned:
		return apperr.ErrAccountLocked
	case domain.StatusDeleted:
		return apperr.ErrAccountDeleted
	default:
		return apperr.ErrAccountDisabled
	}
}

func (s *SessionService) issuePair(p *domain.Principal) (*SessionPair, domain.RefreshRecord, error) {
	access, err := s.Codec.Issue(p.Username, tokens.ClassAccess, map[string]any{"uid": p.ID})
	if err != nil {
		return nil, domain.RefreshRecord{}, apperr.Wrap(apperr.CodeUncategorized, err)
	}
	refresh, dec, err := s.Codec.Mint(p.Username, tokens.ClassRefresh, nil)
	if err != nil {
		return nil, domain.RefreshRecord{}, apperr.Wrap(apperr.CodeUncategorized, err)
	}
	pair := &SessionPair{
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresIn:     int64(s.Codec.TTL(tokens.ClassAccess) / time.Second),
		PrincipalID:   p.ID,
		PrincipalName: p.Username,
		RoleNames:     p.RoleNames(),
	}
	rec := domain.RefreshRecord{
		Token:       refresh,
		ID:          dec.ID,
		PrincipalID: p.ID,
		ExpiresAt:   dec.ExpiresAt,
	}
	return pair, rec, nil
}

// Authenticate checks credentials and opens a new session lineage.
func (s *SessionService) Authenticate(ctx context.Context, identifier, secret string) (pair *SessionPair, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", identifier)
	defer func() { s.Metrics.Session("login", outcome(err)) }()

	if identifier == "" || secret == "" {
		l.Warn("login_failed", "status", 400, "reason", "empty username or password")
		return nil, apperr.ErrInvalidInput
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	p, err := s.Users.FindByIdentifier(sctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown username")
			return nil, apperr.ErrBadCredentials
		}
		l.Error("login_failed", "status", 503, "reason", "credential store", "error", err)
		return nil, storeFailure(err)
	}
	if !s.Users.VerifySecret(p, secret) {
		l.Warn("login_failed", "status", 401, "reason", "password mismatch")
		return nil, apperr.ErrBadCredentials
	}
	if err := statusError(p.Status); err != nil {
		l.Warn("login_failed", "status", 403, "reason", "account status", "account_status", p.Status)
		return nil, err
	}

	pair, rec, err := s.issuePair(p)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign tokens", "error", err)
		return nil, err
	}
	if err := s.Ledger.Insert(sctx, rec); err != nil {
		l.Error("login_failed", "status", 503, "reason", "cannot persist refresh token", "error", err)
		return nil, storeFailure(err)
	}

	s.publish(ctx, events.Event{Type: events.TypeLoggedIn, PrincipalID: p.ID, Username: p.Username, TokenID: rec.ID})
	l.Info("login_successful", "user_id", p.ID)
	return pair, nil
}

// Refresh rotates a refresh token. Of several concurrent calls with the same
// token at most one succeeds; the rest fail with TokenInvalid.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (pair *SessionPair, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	defer func() { s.Metrics.Session("refresh", outcome(err)) }()

	raw := tokens.StripBearer(refreshToken)
	if raw == "" {
		return nil, apperr.ErrTokenInvalid
	}
	dec, err := s.Codec.Parse(raw, tokens.ClassRefresh)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			l.Info("refresh_failed", "status", 401, "reason", "refresh token expired")
			return nil, apperr.ErrTokenExpired
		}
		l.Warn("refresh_failed", "status", 401, "reason", "refresh token rejected", "error", err)
		return nil, apperr.ErrTokenInvalid
	}
	l = l.With("username", dec.Subject, "jti", dec.ID)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	p, err := s.Users.FindByIdentifier(sctx, dec.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "subject not found")
			return nil, apperr.ErrTokenInvalid
		}
		l.Error("refresh_failed", "status", 503, "error", err)
		return nil, storeFailure(err)
	}
	switch p.Status {
	case domain.StatusActive:
	case domain.StatusDeleted:
		l.Warn("refresh_failed", "status", 401, "reason", "subject deleted")
		return nil, apperr.ErrTokenInvalid
	default:
		l.Warn("refresh_failed", "status", 403, "reason", "account status", "account_status", p.Status)
		return nil, statusError(p.Status)
	}

	rec, err := s.Ledger.FindByToken(sctx, raw)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "refresh token not in ledger")
			return nil, apperr.ErrTokenInvalid
		}
		l.Error("refresh_failed", "status", 503, "error", err)
		return nil, storeFailure(err)
	}
	if rec.Revoked {
		s.reuseDetected(ctx, p, dec.ID, "revoked refresh token presented")
		return nil, apperr.ErrTokenInvalid
	}
	if rec.PrincipalID != p.ID {
		l.Warn("refresh_failed", "status", 401, "reason", "refresh token owned by another account")
		return nil, apperr.ErrTokenInvalid
	}
	if rec.Expired(s.now()) {
		l.Info("refresh_failed", "status", 401, "reason", "ledger record expired")
		return nil, apperr.ErrTokenExpired
	}

	pair, next, err := s.issuePair(p)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot sign tokens", "error", err)
		return nil, err
	}
	won, err := s.Ledger.Rotate(sctx, raw, next)
	if err != nil {
		l.Error("refresh_failed", "status", 503, "reason", "rotation failed", "error", err)
		return nil, storeFailure(err)
	}
	if !won {
		s.reuseDetected(ctx, p, dec.ID, "lost rotation race")
		return nil, apperr.ErrTokenInvalid
	}

	s.publish(ctx, events.Event{Type: events.TypeTokenRefreshed, PrincipalID: p.ID, Username: p.Username, TokenID: next.ID})
	l.Info("refresh_successful", "new_jti", next.ID)
	return pair, nil
}

// reuseDetected reports a refresh token that was already revoked. Replays and
// retry races are not told apart.
func (s *SessionService) reuseDetected(ctx context.Context, p *domain.Principal, jti, reason string) {
	logging.FromContext(ctx).Error("security_alert",
		"event", events.TypeRefreshReuse,
		"reason", reason,
		"user_id", p.ID,
		"username", p.Username,
		"jti", jti,
	)
	s.Metrics.RefreshReuse()
	s.publish(ctx, events.Event{Type: events.TypeRefreshReuse, PrincipalID: p.ID, Username: p.Username, TokenID: jti})
}

// Logout blacklists the access token for the rest of its lifetime and revokes
// the refresh token. Unknown, expired or already revoked tokens are not an
// error, so repeating a logout is harmless.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) (err error) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	defer func() { s.Metrics.Session("logout", outcome(err)) }()

	access := tokens.StripBearer(accessToken)
	refresh := tokens.StripBearer(refreshToken)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var subject string
	if access != "" {
		dec, err := s.Codec.Parse(access, tokens.ClassAccess)
		if err != nil {
			l.Debug("logout_blacklist_skipped", "reason", err.Error())
		} else if ttl := dec.Remaining(s.now()); ttl <= 0 {
			l.Debug("logout_blacklist_skipped", "reason", "access token already expired")
		} else {
			subject = dec.Subject
			if err := s.Cache.Set(sctx, access, ttl); err != nil {
				l.Error("logout_failed", "status", 503, "reason", "cannot blacklist access token", "error", err)
				return storeFailure(err)
			}
			s.Metrics.Blacklisted()
		}
	}

	var principalID uint
	if refresh != "" {
		rec, err := s.Ledger.FindByToken(sctx, refresh)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			l.Debug("logout_refresh_skipped", "reason", "refresh token not in ledger")
		case err != nil:
			l.Error("logout_failed", "status", 503, "reason", "cannot look up refresh token", "error", err)
			return storeFailure(err)
		default:
			principalID = rec.PrincipalID
			revoked, err := s.Ledger.CompareAndRevoke(sctx, refresh)
			if err != nil {
				l.Error("logout_failed", "status", 503, "reason", "cannot revoke refresh token", "error", err)
				return storeFailure(err)
			}
			l.Debug("logout_refresh_revoked", "changed", revoked)
		}
	}

	s.publish(ctx, events.Event{Type: events.TypeLoggedOut, PrincipalID: principalID, Username: subject})
	l.Info("successful_logout", "username", subject, "user_id", principalID)
	return nil
}

// Package authctx carries the authenticated principal of a request through
// context.Context.
package authctx

import (
	"context"

	"github.com/Skotchmaster/travel_social/internal/authority"
	"github.com/Skotchmaster/travel_social/internal/domain"
)

type Authenticated struct {
	Principal   *domain.Principal
	Authorities authority.Set
	TokenID     string
}

type ctxKey struct{}

func WithAuthenticated(ctx context.Context, a *Authenticated) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the principal attached by the request authenticator,
// or false when the request is anonymous.
func FromContext(ctx context.Context) (*Authenticated, bool) {
	a, ok := ctx.Value(ctxKey{}).(*Authenticated)
	return a, ok && a != nil && a.Principal != nil
}

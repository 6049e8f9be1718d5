package events

import (
	"context"
	"time"
)

// Event types published on the auth topic.
const (
	TypeLoggedIn       = "user_logged_in"
	TypeTokenRefreshed = "token_refreshed"
	TypeRefreshReuse   = "refresh_token_reuse_detected"
	TypeLoggedOut      = "user_logged_out"
	TypeAccountDeleted = "user_deleted"
)

type Event struct {
	Type        string    `json:"type"`
	PrincipalID uint      `json:"user_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	TokenID     string    `json:"jti,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

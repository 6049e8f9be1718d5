package domain

import "time"

// Status is the account state reported by the credential store.
type Status string

const (
	StatusActive   Status = "active"
	StatusBanned   Status = "banned"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBanned, StatusInactive, StatusDeleted:
		return true
	}
	return false
}

type Principal struct {
	ID           uint
	Username     string
	PasswordHash string
	Status       Status
	Roles        []Role
}

type Role struct {
	Name        string
	Permissions []PermissionCode
}

// RoleNames returns the role names in assignment order.
func (p *Principal) RoleNames() []string {
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, r.Name)
	}
	return out
}

// RefreshRecord is one issued refresh token as the ledger sees it.
type RefreshRecord struct {
	Token       string
	ID          string
	PrincipalID uint
	ExpiresAt   time.Time
	Revoked     bool
}

// Expired reports whether the stored expiry has been reached at now.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

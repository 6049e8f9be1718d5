package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/travel_social/internal/domain"
)

type User struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string         `gorm:"not null"                 json:"-"`
	Status       string         `gorm:"not null;default:active"  json:"status"`
	Roles        []Role         `gorm:"many2many:user_roles;"    json:"roles"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index"                    json:"-"`
}

type Role struct {
	ID          uint         `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name        string       `gorm:"uniqueIndex;not null"        json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

type Permission struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"uniqueIndex;not null"     json:"code"`
}

// RefreshToken stores the sha256 of the token, never the token itself.
// The revoked flag is the only column that changes after insert.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	JTI       string    `gorm:"not null"             json:"jti"`
	ExpiresAt int64     `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists the models owned by the auth schema, in migration order.
func All() []any {
	return []any{&Permission{}, &Role{}, &User{}, &RefreshToken{}}
}

func (u *User) ToDomain() *domain.Principal {
	p := &domain.Principal{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Status:       domain.Status(u.Status),
		Roles:        make([]domain.Role, 0, len(u.Roles)),
	}
	if u.DeletedAt.Valid {
		p.Status = domain.StatusDeleted
	}
	for _, r := range u.Roles {
		role := domain.Role{Name: r.Name, Permissions: make([]domain.PermissionCode, 0, len(r.Permissions))}
		for _, perm := range r.Permissions {
			role.Permissions = append(role.Permissions, domain.PermissionCode(perm.Code))
		}
		p.Roles = append(p.Roles, role)
	}
	return p
}

func (t *RefreshToken) ToDomain() *domain.RefreshRecord {
	return &domain.RefreshRecord{
		ID:          t.JTI,
		PrincipalID: t.UserID,
		ExpiresAt:   time.Unix(t.ExpiresAt, 0),
		Revoked:     t.Revoked,
	}
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPermissionCodes(t *testing.T) {
	codes := PermissionCodes()
	assert.Len(t, codes, 10)
	for _, c := range codes {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, PermissionCode("WEATHER_READ").Valid())

	codes[0] = "changed"
	assert.Equal(t, PermUserRead, PermissionCodes()[0])
}

func TestRefreshRecordExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := RefreshRecord{ExpiresAt: now}
	assert.True(t, r.Expired(now))
	assert.False(t, r.Expired(now.Add(-time.Second)))
}

func TestRoleNames(t *testing.T) {
	p := Principal{Roles: []Role{{Name: RoleAdmin}, {Name: RoleUser}}}
	assert.Equal(t, []string{"ADMIN", "USER"}, p.RoleNames())
	assert.True(t, StatusBanned.Valid())
	assert.False(t, Status("frozen").Valid())
}

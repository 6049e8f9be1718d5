package authority

import (
	"sort"

	"github.com/Skotchmaster/travel_social/internal/domain"
)

// RolePrefix marks authorities that stand for a role rather than a permission.
const RolePrefix = "ROLE_"

// Set is a collection of authority strings without duplicates.
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Has(authority string) bool {
	_, ok := s[authority]
	return ok
}

// HasPermission is Has for a permission code.
func (s Set) HasPermission(code domain.PermissionCode) bool {
	return s.Has(string(code))
}

func (s Set) HasRole(name string) bool {
	return s.Has(RolePrefix + name)
}

// Sorted returns the authorities in lexicographic order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Resolve flattens the already loaded role graph of p. It never touches the
// store.
func Resolve(p *domain.Principal) Set {
	out := Set{}
	if p == nil {
		return out
	}
	for _, role := range p.Roles {
		out[RolePrefix+role.Name] = struct{}{}
		for _, perm := range role.Permissions {
			out[string(perm)] = struct{}{}
		}
	}
	return out
}

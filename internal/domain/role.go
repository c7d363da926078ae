package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a single marketplace role. Roles are bit flags so a RoleSet can
// hold several at once.
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleSeller
	RoleBuyer
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleAdmin, "admin"},
	{RoleSeller, "seller"},
	{RoleBuyer, "buyer"},
}

func (r Role) String() string {
	for _, rn := range roleNames {
		if rn.role == r {
			return rn.name
		}
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole maps a role name to its flag.
func ParseRole(name string) (Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, rn := range roleNames {
		if rn.name == name {
			return rn.role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// RoleSet is the set of roles an actor holds.
type RoleSet uint8

// NewRoleSet builds a set from individual roles.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= RoleSet(r)
	}
	return s
}

// ParseRoleSet builds a set from role names, rejecting unknown names.
func ParseRoleSet(names []string) (RoleSet, error) {
	var s RoleSet
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			return 0, err
		}
		s = s.With(r)
	}
	return s, nil
}

func (s RoleSet) Has(r Role) bool { return s&RoleSet(r) != 0 }

// HasAny reports whether s shares at least one role with other.
func (s RoleSet) HasAny(other RoleSet) bool { return s&other != 0 }

func (s RoleSet) With(r Role) RoleSet    { return s | RoleSet(r) }
func (s RoleSet) Without(r Role) RoleSet { return s &^ RoleSet(r) }
func (s RoleSet) IsZero() bool           { return s == 0 }

// Primary returns the dominant role: admin over seller over buyer.
func (s RoleSet) Primary() (Role, bool) {
	for _, rn := range roleNames {
		if s.Has(rn.role) {
			return rn.role, true
		}
	}
	return 0, false
}

// Roles lists the members in admin, seller, buyer order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(roleNames))
	for _, rn := range roleNames {
		if s.Has(rn.role) {
			out = append(out, rn.role)
		}
	}
	return out
}

// Strings lists member names in admin, seller, buyer order.
func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.String()
	}
	return out
}

func (s RoleSet) String() string { return strings.Join(s.Strings(), ",") }

// MarshalJSON encodes the set as a list of role names.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a list of role names.
func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseRoleSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

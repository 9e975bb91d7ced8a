package models

import (
	"fmt"
	"sort"
)

// Role is a closed set of account privileges.
type Role uint8

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:      "USER",
	RoleModerator: "MODERATOR",
	RoleAdmin:     "ADMIN",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole returns the role for its persisted name.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	name, ok := roleNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return []byte(name), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Account is the persisted record of a registered user.
type Account struct {
	Login        string `json:"login"`
	Password     string `json:"password"` // hashed
	Roles        []Role `json:"roles"`
	BlockedUntil int64  `json:"blockedUntil"` // unix seconds, 0 if never blocked
}

// HasRole reports whether the account holds role.
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole adds role and reports whether the set changed.
func (a *Account) AddRole(role Role) bool {
	if a.HasRole(role) {
		return false
	}
	a.Roles = append(a.Roles, role)
	sort.Slice(a.Roles, func(i, j int) bool { return a.Roles[i] < a.Roles[j] })
	return true
}

// RemoveRole removes role and reports whether the set changed.
func (a *Account) RemoveRole(role Role) bool {
	for i, r := range a.Roles {
		if r == role {
			a.Roles = append(a.Roles[:i:i], a.Roles[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to the persistence layer.
func (a *Account) Clone() Account {
	c := *a
	c.Roles = append([]Role(nil), a.Roles...)
	return c
}

// Entry is one line of a chat log.
type Entry struct {
	Text     string   `json:"text"`
	UnreadBy []string `json:"unreadBy"`
}

// ChatRecord is the persisted form of a two-party chat.
type ChatRecord struct {
	Members []string
	Entries []Entry
}

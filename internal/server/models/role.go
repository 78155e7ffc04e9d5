package models

import (
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// Role is part of the storage key of a user, so only known values are accepted.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleCustomer}

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", common.ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

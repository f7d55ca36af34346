package model

import (
	"errors"
	"fmt"
	"strings"
)

// Permission is a coarse authorization tag assigned to users.  Tags are
// independent of the admin/superadmin flags.
type Permission string

const (
	PermissionAdmin       Permission = "admin"
	PermissionGarageAdmin Permission = "garage_admin"
	PermissionTechnician  Permission = "technician"
	PermissionB2B         Permission = "b2b"
	PermissionCustomer    Permission = "customer"
)

// Permissions lists the closed vocabulary in display order.
var Permissions = []Permission{
	PermissionAdmin,
	PermissionGarageAdmin,
	PermissionTechnician,
	PermissionB2B,
	PermissionCustomer,
}

// ErrInvalidPermission is returned for names outside the vocabulary.
var ErrInvalidPermission = errors.New("invalid permission")

// Valid reports whether p belongs to the vocabulary.
func (p Permission) Valid() bool {
	for _, known := range Permissions {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePermission normalizes and validates a tag name.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermission, s)
	}
	return p, nil
}

// PermissionTag is a row of the `permissions` table.
type PermissionTag struct {
	ID   string     `json:"id"`
	Name Permission `json:"name"`
}

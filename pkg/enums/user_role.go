package enums

import (
	"fmt"
	"strings"
)

// UserRole is the system-wide role carried in access tokens.
type UserRole string

const (
	RoleHousehold UserRole = "HOUSEHOLD"
	RoleAgent     UserRole = "AGENT"
	RoleAdmin     UserRole = "ADMIN"
	// RoleHysacam is the municipal waste operator.
	RoleHysacam UserRole = "HYSACAM"
	// RoleCouncil is the city council oversight role.
	RoleCouncil UserRole = "COUNCIL"
)

var validUserRoles = []UserRole{
	RoleHousehold,
	RoleAgent,
	RoleAdmin,
	RoleHysacam,
	RoleCouncil,
}

// StaffRoles may read platform-wide stats and user records.
var StaffRoles = []UserRole{RoleAdmin, RoleHysacam, RoleCouncil}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value matches a known role.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to platform or municipal staff.
func (r UserRole) IsStaff() bool {
	for _, candidate := range StaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole accepts any casing.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

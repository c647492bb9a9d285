package model

import (
	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleOfficer    UserRole = "OFFICER"
	UserRoleSupervisor UserRole = "SUPERVISOR"
	UserRoleAdmin      UserRole = "ADMIN"
)

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

func (p Principal) IsOfficer() bool {
	return p.Role == UserRoleOfficer || p.Role == UserRoleSupervisor || p.Role == UserRoleAdmin
}

func (p Principal) IsSupervisor() bool {
	return p.Role == UserRoleSupervisor || p.Role == UserRoleAdmin
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

package service

import (
	"fmt"

	"github.com/godilite/service-audit/internal/repository/models"
)

// Actor is the authenticated caller. Every operation is scoped to its department.
type Actor struct {
	UserID       int64
	Role         string
	DepartmentID int64
}

func (a Actor) IsAdmin() bool   { return a.Role == models.RoleAdministrator }
func (a Actor) IsAnalyst() bool { return a.Role == models.RoleAnalyst }

// CanManage reports whether the actor may write audits and see team analytics.
func (a Actor) CanManage() bool {
	return a.Role == models.RoleAdministrator || a.Role == models.RoleManager
}

func (a Actor) known() error {
	switch a.Role {
	case models.RoleAdministrator, models.RoleManager, models.RoleAnalyst:
		return nil
	}
	return fmt.Errorf("role %q: %w", a.Role, ErrForbidden)
}

func (a Actor) requireManager() error {
	if !a.CanManage() {
		return fmt.Errorf("role %q cannot perform this operation: %w", a.Role, ErrForbidden)
	}
	return nil
}

func (a Actor) requireAdmin() error {
	if !a.IsAdmin() {
		return fmt.Errorf("only administrators may perform this operation: %w", ErrForbidden)
	}
	return nil
}

// RoleDisplay is the localized role label.
func RoleDisplay(role string) string {
	switch role {
	case models.RoleAdministrator:
		return "Administrador"
	case models.RoleManager:
		return "Gestor"
	case models.RoleAnalyst:
		return "Analista"
	}
	return role
}

package permission

import (
	"errors"
	"fmt"
	"sync"
)

// RoleManager maps role names to permission name sets. Roles are registered
// against a frozen-or-not [Registry] during startup, then the manager itself
// is frozen; sessions are minted with a copy of their role's set.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string][]string
	frozen bool
}

// NewRoleManager creates a role manager validating against registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string][]string),
	}
}

// RegisterRole defines a role. Every permission must already exist in the
// registry. Must be called before [RoleManager.Freeze].
func (m *RoleManager) RegisterRole(name string, permissions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return errors.New("role manager frozen")
	}
	if name == "" {
		return errors.New("role name cannot be empty")
	}
	if _, exists := m.roles[name]; exists {
		return errors.New("role already registered")
	}

	for _, p := range permissions {
		if !m.registry.Has(p) {
			return fmt.Errorf("role %q references unregistered permission %q", name, p)
		}
	}

	m.roles[name] = append([]string(nil), permissions...)
	return nil
}

// PermissionsFor returns a copy of the role's permission set, or false for
// unknown roles.
func (m *RoleManager) PermissionsFor(role string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perms, ok := m.roles[role]
	if !ok {
		return nil, false
	}
	return append([]string(nil), perms...), true
}

// HasPermission reports whether role includes the named permission.
func (m *RoleManager) HasPermission(role, permission string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.roles[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// HasRole reports whether role is defined.
func (m *RoleManager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.roles[role]
	return ok
}

// Freeze prevents further role registrations.
func (m *RoleManager) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frozen = true
}

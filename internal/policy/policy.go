// Package policy decides whether a role may perform an action. The decision
// table is plain data so new actions and roles can be added without touching
// call sites; anything not granted is denied.
package policy

import "audittrail-backend/internal/models"

// Action identifies a protected operation.
type Action string

const (
	ActionViewAuditLogs Action = "view_audit_logs"
	ActionCreateUser    Action = "create_user"
	ActionViewUsers     Action = "view_users"
	ActionViewAccount   Action = "view_account"
)

// Table maps (action, role) to an allow decision. Zero value denies everything.
type Table struct {
	allow map[Action]map[models.Role]bool
}

// New builds a lookup table from per-action role grants.
func New(grants map[Action][]models.Role) *Table {
	allow := make(map[Action]map[models.Role]bool, len(grants))
	for action, granted := range grants {
		m := make(map[models.Role]bool, len(granted))
		for _, role := range granted {
			m[role] = true
		}
		allow[action] = m
	}
	return &Table{allow: allow}
}

// Allowed reports the decision for (role, action). Unknown actions and roles
// deny.
func (t *Table) Allowed(role models.Role, action Action) bool {
	return t.allow[action][role]
}

// Default is the shipped permission table.
var Default = New(map[Action][]models.Role{
	ActionViewAuditLogs: {models.RoleOwner, models.RoleAdmin},
	ActionCreateUser:    {models.RoleOwner, models.RoleAdmin},
	ActionViewUsers:     {models.RoleOwner, models.RoleAdmin},
	ActionViewAccount: {
		models.RoleOwner,
		models.RoleAdmin,
		models.RoleAnalyst,
		models.RoleContentCreator,
	},
})

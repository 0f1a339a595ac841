package model

// Preset tables contribute rows to the effective permission set computed at
// request time. All of them are read-mostly: administrative role-management
// writes them and must bump the matching permission version so cached
// snapshots are invalidated.

// RoleActionPreset grants role RoleID the action ActionID on module
// ModuleID. At most one active row exists per (role_id, module_id,
// action_id).
type RoleActionPreset struct {
	ID       uint64 // role_action_presets.id
	RoleID   uint64 // role_action_presets.role_id
	ModuleID uint64 // role_action_presets.module_id
	ActionID uint64 // role_action_presets.action_id
	StatusID uint8  // role_action_presets.status_id
}

// RoleLocationPreset grants role RoleID visibility over location
// LocationID. At most one active row exists per (role_id, location_id).
// Location grants are role-level only; there is no per-user override.
type RoleLocationPreset struct {
	ID         uint64 // role_location_presets.id
	RoleID     uint64 // role_location_presets.role_id
	LocationID uint64 // role_location_presets.location_id
	StatusID   uint8  // role_location_presets.status_id
}

// UserPermissionPreset is a per-user override scoped to one access key. The
// set of active rows for (user_id, role_id, access_key_id, module_id)
// replaces the role-default action set for that module entirely; modules
// with no override rows keep the role defaults.
type UserPermissionPreset struct {
	ID          uint64 // user_permission_presets.id
	UserID      uint64 // user_permission_presets.user_id
	RoleID      uint64 // user_permission_presets.role_id
	AccessKeyID uint64 // user_permission_presets.access_key_id
	ModuleID    uint64 // user_permission_presets.module_id
	ActionID    uint64 // user_permission_presets.action_id
	StatusID    uint8  // user_permission_presets.status_id
}

// Permission version subjects. The current version for a (user, role) pair
// is the sum of the role subject's counter and the user subject's counter,
// which stays monotonic under independent bumps.
const (
	SubjectRole = "ROLE"
	SubjectUser = "USER"
)

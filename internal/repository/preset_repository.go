package repository

import (
	"context"
	"database/sql"

	"github.com/hartono/bizman-backend/internal/model"
)

// PresetRepo reads the permission preset tables and maintains the version
// counters. Presets are read-mostly from the core's perspective;
// administrative role-management code writes them and must call the bump
// methods so cached snapshots keyed on the version fall out of use.
type PresetRepo struct{ DB *sql.DB }

func NewPresetRepo(db *sql.DB) *PresetRepo { return &PresetRepo{DB: db} }

// RoleActionPresets returns the active (module, action) grants of a role.
func (r *PresetRepo) RoleActionPresets(ctx context.Context, roleID uint64) ([]model.RoleActionPreset, error) {
	var out []model.RoleActionPreset
	err := withRetry(ctx, func() error {
		rows, err := r.DB.QueryContext(ctx,
			"SELECT id, role_id, module_id, action_id, status_id FROM role_action_presets WHERE role_id=? AND status_id=?",
			roleID, model.StatusActive)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var p model.RoleActionPreset
			if err := rows.Scan(&p.ID, &p.RoleID, &p.ModuleID, &p.ActionID, &p.StatusID); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RoleLocationPresets returns the active location grants of a role.
func (r *PresetRepo) RoleLocationPresets(ctx context.Context, roleID uint64) ([]model.RoleLocationPreset, error) {
	var out []model.RoleLocationPreset
	err := withRetry(ctx, func() error {
		rows, err := r.DB.QueryContext(ctx,
			"SELECT id, role_id, location_id, status_id FROM role_location_presets WHERE role_id=? AND status_id=?",
			roleID, model.StatusActive)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var p model.RoleLocationPreset
			if err := rows.Scan(&p.ID, &p.RoleID, &p.LocationID, &p.StatusID); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserOverrides returns the active per-user override rows scoped to one
// access key.
func (r *PresetRepo) UserOverrides(ctx context.Context, userID, roleID, accessKeyID uint64) ([]model.UserPermissionPreset, error) {
	var out []model.UserPermissionPreset
	err := withRetry(ctx, func() error {
		rows, err := r.DB.QueryContext(ctx,
			`SELECT id, user_id, role_id, access_key_id, module_id, action_id, status_id
			 FROM user_permission_presets
			 WHERE user_id=? AND role_id=? AND access_key_id=? AND status_id=?`,
			userID, roleID, accessKeyID, model.StatusActive)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var p model.UserPermissionPreset
			if err := rows.Scan(&p.ID, &p.UserID, &p.RoleID, &p.AccessKeyID, &p.ModuleID, &p.ActionID, &p.StatusID); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Version returns the current permission version for a (user, role) pair:
// the sum of the role counter and the user counter. Missing counters count
// as zero, so a fresh install starts at version 0.
func (r *PresetRepo) Version(ctx context.Context, userID, roleID uint64) (uint64, error) {
	var v uint64
	err := withRetry(ctx, func() error {
		return r.DB.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(version),0) FROM permission_versions
			 WHERE (subject_type=? AND subject_id=?) OR (subject_type=? AND subject_id=?)`,
			model.SubjectRole, roleID, model.SubjectUser, userID).Scan(&v)
	})
	if err != nil {
		return 0, err
	}
	return v, nil
}

// BumpRoleVersion increments the role counter. Administrative writes to
// role_action_presets or role_location_presets must call this in the same
// transaction boundary as the preset change.
func (r *PresetRepo) BumpRoleVersion(ctx context.Context, roleID uint64) error {
	return r.bump(ctx, model.SubjectRole, roleID)
}

// BumpUserVersion increments the user counter after a
// user_permission_presets change.
func (r *PresetRepo) BumpUserVersion(ctx context.Context, userID uint64) error {
	return r.bump(ctx, model.SubjectUser, userID)
}

func (r *PresetRepo) bump(ctx context.Context, subjectType string, subjectID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO permission_versions (subject_type, subject_id, version) VALUES (?,?,1)
		 ON DUPLICATE KEY UPDATE version = version + 1`,
		subjectType, subjectID)
	return classify(err)
}

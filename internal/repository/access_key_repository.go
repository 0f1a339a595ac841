package repository

import (
	"context"
	"database/sql"

	"github.com/hartono/bizman-backend/internal/model"
)

// AccessKeyRepo answers tenant entitlement questions from the
// user_access_keys table.
type AccessKeyRepo struct{ DB *sql.DB }

func NewAccessKeyRepo(db *sql.DB) *AccessKeyRepo { return &AccessKeyRepo{DB: db} }

// HasEntitlement reports whether the user holds an active entitlement for
// the access key.
func (r *AccessKeyRepo) HasEntitlement(ctx context.Context, userID, accessKeyID uint64) (bool, error) {
	var ok bool
	err := withRetry(ctx, func() error {
		return r.DB.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM user_access_keys WHERE user_id=? AND access_key_id=? AND status_id=?)",
			userID, accessKeyID, model.StatusActive).Scan(&ok)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ListForUser returns the access keys the user may switch to, joined with
// their names for display.
func (r *AccessKeyRepo) ListForUser(ctx context.Context, userID uint64) ([]model.AccessKey, error) {
	var out []model.AccessKey
	err := withRetry(ctx, func() error {
		rows, err := r.DB.QueryContext(ctx,
			`SELECT ak.id, ak.name, ak.status_id
			 FROM user_access_keys uak
			 JOIN access_keys ak ON ak.id = uak.access_key_id
			 WHERE uak.user_id=? AND uak.status_id=? AND ak.status_id=?
			 ORDER BY ak.name`,
			userID, model.StatusActive, model.StatusActive)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var k model.AccessKey
			if err := rows.Scan(&k.ID, &k.Name, &k.StatusID); err != nil {
				return err
			}
			out = append(out, k)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

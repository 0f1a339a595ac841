package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hartono/bizman-backend/internal/model"
)

// UserRepo reads the `users` table and updates the current access key.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, user_name, password_hash, role_id, status_id, user_upline_id, current_access_key, created_at, modified_at"

// GetByUserName fetches a user by normalized login name.
func (r *UserRepo) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	userName = strings.ToLower(strings.TrimSpace(userName))
	var u model.User
	err := withRetry(ctx, func() error {
		return scanUser(r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE user_name=? LIMIT 1", userName), &u)
	})
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := withRetry(ctx, func() error {
		return scanUser(r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	})
	return u, err
}

// UpdateCurrentAccessKey persists the newly selected tenant context.
func (r *UserRepo) UpdateCurrentAccessKey(ctx context.Context, userID, accessKeyID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET current_access_key=?, modified_at=UTC_TIMESTAMP() WHERE id=?",
		accessKeyID, userID)
	return classify(err)
}

func scanUser(row *sql.Row, u *model.User) error {
	var upline, currentKey sql.NullInt64
	err := row.Scan(&u.ID, &u.UserName, &u.PasswordHash, &u.RoleID, &u.StatusID,
		&upline, &currentKey, &u.CreatedAt, &u.ModifiedAt)
	if err != nil {
		return err
	}
	if upline.Valid {
		u.UplineID = uint64(upline.Int64)
	}
	if currentKey.Valid {
		u.CurrentAccessKey = uint64(currentKey.Int64)
	}
	return nil
}

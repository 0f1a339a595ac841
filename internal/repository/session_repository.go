package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/model"
)

// SessionRepo owns the user_login_sessions table. Rows are never deleted;
// logout and revocation flip is_active/is_logout and the table doubles as
// the login audit trail.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = `id, user_id, refresh_token, refresh_token_expires_at, last_login,
 last_logout, is_logout, device_info, ip_address, user_agent, is_active, created_at, modified_at`

// Create inserts an active session row and returns its id.
func (r *SessionRepo) Create(ctx context.Context, s model.UserLoginSession) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_login_sessions
		 (user_id, refresh_token, refresh_token_expires_at, last_login, is_logout, device_info, ip_address, user_agent, is_active)
		 VALUES (?,?,?,UTC_TIMESTAMP(),0,?,?,?,1)`,
		s.UserID, s.RefreshToken, s.RefreshExpiresAt, s.DeviceInfo, s.IPAddress, s.UserAgent)
	if err != nil {
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err)
	}
	return uint64(id), nil
}

// Rotate performs the single-use refresh rotation as one conditional
// UPDATE: it succeeds only while the row still holds oldHash, is active and
// unexpired. RowsAffected==0 means the token was unknown, expired, revoked
// or already rotated by a concurrent call, all reported as
// auth.ErrInvalidSession. This path is deliberately not retried.
//
// If the follow-up SELECT fails after the UPDATE committed, the caller gets
// an error without the new token and the session stays stranded until its
// refresh expiry. That fail-closed outcome is accepted: handing out a token
// we could not read back would be worse, and the client recovers by logging
// in again.
func (r *SessionRepo) Rotate(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (model.UserLoginSession, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE user_login_sessions
		 SET refresh_token=?, refresh_token_expires_at=?, modified_at=UTC_TIMESTAMP()
		 WHERE refresh_token=? AND is_active=1 AND refresh_token_expires_at > UTC_TIMESTAMP()`,
		newHash, expiresAt, oldHash)
	if err != nil {
		return model.UserLoginSession{}, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.UserLoginSession{}, classify(err)
	}
	if n == 0 {
		return model.UserLoginSession{}, auth.ErrInvalidSession
	}

	var s model.UserLoginSession
	err = withRetry(ctx, func() error {
		return scanSession(r.DB.QueryRowContext(ctx,
			"SELECT "+sessionColumns+" FROM user_login_sessions WHERE refresh_token=? LIMIT 1", newHash), &s)
	})
	if err != nil {
		return model.UserLoginSession{}, classify(err)
	}
	return s, nil
}

// Deactivate marks the session holding tokenHash as logged out and returns
// the session it ended for audit attribution. Matching nothing is fine,
// logout is idempotent; the caller then gets a zero session back.
func (r *SessionRepo) Deactivate(ctx context.Context, tokenHash string) (model.UserLoginSession, error) {
	var affected int64
	err := withRetry(ctx, func() error {
		res, err := r.DB.ExecContext(ctx,
			`UPDATE user_login_sessions
			 SET is_active=0, is_logout=1, last_logout=UTC_TIMESTAMP(), modified_at=UTC_TIMESTAMP()
			 WHERE refresh_token=? AND is_active=1`, tokenHash)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return model.UserLoginSession{}, err
	}
	if affected == 0 {
		return model.UserLoginSession{}, nil
	}

	var s model.UserLoginSession
	err = withRetry(ctx, func() error {
		return scanSession(r.DB.QueryRowContext(ctx,
			"SELECT "+sessionColumns+" FROM user_login_sessions WHERE refresh_token=? LIMIT 1", tokenHash), &s)
	})
	if err != nil {
		// The logout itself committed; only the attribution read failed.
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserLoginSession{}, nil
		}
		return model.UserLoginSession{}, err
	}
	return s, nil
}

// DeactivateAllForUser revokes every active session of the user in one
// pass.
func (r *SessionRepo) DeactivateAllForUser(ctx context.Context, userID uint64) error {
	return withRetry(ctx, func() error {
		_, err := r.DB.ExecContext(ctx,
			`UPDATE user_login_sessions
			 SET is_active=0, is_logout=1, last_logout=UTC_TIMESTAMP(), modified_at=UTC_TIMESTAMP()
			 WHERE user_id=? AND is_active=1`, userID)
		return err
	})
}

// ListActiveForUser returns the user's active sessions, newest login first.
func (r *SessionRepo) ListActiveForUser(ctx context.Context, userID uint64) ([]model.UserLoginSession, error) {
	var out []model.UserLoginSession
	err := withRetry(ctx, func() error {
		rows, err := r.DB.QueryContext(ctx,
			"SELECT "+sessionColumns+" FROM user_login_sessions WHERE user_id=? AND is_active=1 ORDER BY last_login DESC",
			userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var s model.UserLoginSession
			if err := scanSessionRows(rows, &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanSession(row *sql.Row, s *model.UserLoginSession) error {
	var lastLogout sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.RefreshExpiresAt, &s.LastLogin,
		&lastLogout, &s.IsLogout, &s.DeviceInfo, &s.IPAddress, &s.UserAgent, &s.IsActive,
		&s.CreatedAt, &s.ModifiedAt)
	if err != nil {
		return err
	}
	if lastLogout.Valid {
		t := lastLogout.Time
		s.LastLogout = &t
	}
	return nil
}

func scanSessionRows(rows *sql.Rows, s *model.UserLoginSession) error {
	var lastLogout sql.NullTime
	err := rows.Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.RefreshExpiresAt, &s.LastLogin,
		&lastLogout, &s.IsLogout, &s.DeviceInfo, &s.IPAddress, &s.UserAgent, &s.IsActive,
		&s.CreatedAt, &s.ModifiedAt)
	if err != nil {
		return err
	}
	if lastLogout.Valid {
		t := lastLogout.Time
		s.LastLogout = &t
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
)

// SessionRepo handles sign-in sessions.
type SessionRepo struct{ db *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) Create(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sessions(id, user_id, created_at)
	VALUES(?, ?, CURRENT_TIMESTAMP)
	`, s.ID, s.UserID)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, created_at, revoked_at FROM sessions WHERE id = ?`, id)
	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.RevokedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Revoke marks the session ended. Revoking twice is a no-op.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP WHERE id = ? AND revoked_at IS NULL`, id)
	return err
}

func (r *SessionRepo) ListActive(ctx context.Context, userID string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, created_at, revoked_at FROM sessions WHERE user_id = ? AND revoked_at IS NULL ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.RevokedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

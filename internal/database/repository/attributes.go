package repository

import (
	"context"
	"database/sql"
)

// AttributeRepo handles user_attributes.
type AttributeRepo struct {
	db *sql.DB
}

func NewAttributeRepo(db *sql.DB) *AttributeRepo { return &AttributeRepo{db: db} }

// Upsert writes the value for (user, key). New keys are placed after the
// user's existing attributes; existing keys keep their position.
func (r *AttributeRepo) Upsert(ctx context.Context, userID, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO user_attributes(user_id, key, value, position, updated_at)
	VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM user_attributes WHERE user_id = ?), CURRENT_TIMESTAMP)
	ON CONFLICT(user_id, key) DO UPDATE SET
	 value=excluded.value,
	 updated_at=CURRENT_TIMESTAMP;
	`, userID, key, value, userID)
	return err
}

func (r *AttributeRepo) List(ctx context.Context, userID string) ([]UserAttribute, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, key, value, position, updated_at FROM user_attributes WHERE user_id = ? ORDER BY position, key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserAttribute
	for rows.Next() {
		var a UserAttribute
		if err := rows.Scan(&a.UserID, &a.Key, &a.Value, &a.Position, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Reset wipes all sandbox data. It keeps the schema intact so the app can continue running.
func Reset(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := WithTx(ctx, db, func(tx *sql.Tx) error {
		tables := []string{
			"sessions",
			"user_attributes",
			"users",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "VACUUM")
	return nil
}

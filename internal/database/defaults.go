package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/database/repository"
)

// UserID derives the stable sandbox id for username.
func UserID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("user:"+username)).String()
}

// DefaultAttributes is the profile a new sandbox user starts with.
func DefaultAttributes(username string) []attribute.Attribute {
	return []attribute.Attribute{
		{Key: "sub", Value: UserID(username)},
		{Key: attribute.KeyBirthdate, Value: "1990-01-01T00:00:00.000Z"},
		{Key: attribute.KeyDisplayName, Value: username},
		{Key: attribute.KeyFavoriteNumber, Value: "7"},
		{Key: attribute.KeyIsBetaUser, Value: "false"},
		{Key: attribute.KeyStartedFreeTrial, Value: attribute.EncodeTime(Now())},
	}
}

// SeedDefaults ensures username exists with a baseline profile.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, username string) (string, error) {
	users := repository.NewUserRepo(db)
	attrs := repository.NewAttributeRepo(db)

	existing, err := users.ByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	id := UserID(username)
	if err := users.Upsert(ctx, repository.User{ID: id, Username: username}); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	for _, a := range DefaultAttributes(username) {
		if err := attrs.Upsert(ctx, id, a.Key, a.Value); err != nil {
			return "", fmt.Errorf("seed %s: %w", a.Key, err)
		}
	}
	return id, nil
}

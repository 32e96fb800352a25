package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/database/repository"
)

func setupDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(dbPath, migrations))
	// second run is a no-op
	require.NoError(t, RunMigrations(dbPath, migrations))

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, ctx
}

func TestSeedDefaults(t *testing.T) {
	db, ctx := setupDB(t)

	id, err := SeedDefaults(ctx, db, "jask")
	require.NoError(t, err)
	require.Equal(t, UserID("jask"), id)

	attrs, err := repository.NewAttributeRepo(db).List(ctx, id)
	require.NoError(t, err)
	want := DefaultAttributes("jask")
	require.Len(t, attrs, len(want))
	for i, a := range attrs {
		require.Equal(t, want[i].Key, a.Key)
		require.Equal(t, i+1, a.Position)
	}

	// edits survive a second seed
	require.NoError(t, repository.NewAttributeRepo(db).Upsert(ctx, id, attribute.KeyFavoriteNumber, "42"))
	again, err := SeedDefaults(ctx, db, "jask")
	require.NoError(t, err)
	require.Equal(t, id, again)
	attrs, err = repository.NewAttributeRepo(db).List(ctx, id)
	require.NoError(t, err)
	require.Len(t, attrs, len(want))
	for _, a := range attrs {
		if a.Key == attribute.KeyFavoriteNumber {
			require.Equal(t, "42", a.Value)
		}
	}
}

func TestAttributeUpsertKeepsPosition(t *testing.T) {
	db, ctx := setupDB(t)

	users := repository.NewUserRepo(db)
	attrs := repository.NewAttributeRepo(db)
	require.NoError(t, users.Upsert(ctx, repository.User{ID: "u1", Username: "one"}))

	require.NoError(t, attrs.Upsert(ctx, "u1", "b", "1"))
	require.NoError(t, attrs.Upsert(ctx, "u1", "a", "2"))
	require.NoError(t, attrs.Upsert(ctx, "u1", "b", "3"))
	require.NoError(t, attrs.Upsert(ctx, "u1", "c", "4"))

	list, err := attrs.List(ctx, "u1")
	require.NoError(t, err)
	var keys, values []string
	for _, a := range list {
		keys = append(keys, a.Key)
		values = append(values, a.Value)
	}
	require.Equal(t, []string{"b", "a", "c"}, keys)
	require.Equal(t, []string{"3", "2", "4"}, values)
}

func TestSessionsAndReset(t *testing.T) {
	db, ctx := setupDB(t)

	id, err := SeedDefaults(ctx, db, "jask")
	require.NoError(t, err)
	sessions := repository.NewSessionRepo(db)
	require.NoError(t, sessions.Create(ctx, repository.Session{ID: "s1", UserID: id}))

	active, err := sessions.ListActive(ctx, id)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, sessions.Revoke(ctx, "s1"))
	require.NoError(t, sessions.Revoke(ctx, "s1"))
	s, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s.RevokedAt)

	active, err = sessions.ListActive(ctx, id)
	require.NoError(t, err)
	require.Empty(t, active)

	require.NoError(t, Reset(ctx, db))
	users, err := repository.NewUserRepo(db).List(ctx)
	require.NoError(t, err)
	require.Empty(t, users)
}

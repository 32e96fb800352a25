package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/database"
)

func setupDirectory(t *testing.T) (*Directory, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "sandbox.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDirectory(db), ctx
}

func TestSandboxRoundTrip(t *testing.T) {
	dir, ctx := setupDirectory(t)

	sb, err := dir.SignIn(ctx, "jask")
	require.NoError(t, err)
	require.Equal(t, "jask", sb.Username())
	require.Equal(t, database.UserID("jask"), sb.UserID())

	attrs, err := sb.FetchAttributes(ctx)
	require.NoError(t, err)
	require.Len(t, attrs, len(database.DefaultAttributes("jask")))

	res, err := sb.UpdateAttribute(ctx, attribute.Attribute{Key: attribute.KeyIsBetaUser, Value: "true"})
	require.NoError(t, err)
	require.True(t, res.Done)
	require.Equal(t, attribute.KeyIsBetaUser, res.Key)

	res, err = sb.UpdateAttribute(ctx, attribute.Attribute{Key: "custom:nickname", Value: "J"})
	require.NoError(t, err)

	after, err := sb.FetchAttributes(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(attrs)+1)
	for i := range attrs {
		require.Equal(t, attrs[i].Key, after[i].Key)
	}
	require.Equal(t, attribute.Attribute{Key: "custom:nickname", Value: "J"}, after[len(after)-1])

	_, err = sb.UpdateAttribute(ctx, attribute.Attribute{Key: "  "})
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestSandboxSignOut(t *testing.T) {
	dir, ctx := setupDirectory(t)

	sb, err := dir.SignIn(ctx, "jask")
	require.NoError(t, err)
	other, err := dir.SignIn(ctx, "jask")
	require.NoError(t, err)
	require.NotEqual(t, sb.SessionID(), other.SessionID())

	require.NoError(t, sb.SignOut(ctx))
	_, err = sb.FetchAttributes(ctx)
	require.ErrorIs(t, err, ErrSignedOut)
	_, err = sb.UpdateAttribute(ctx, attribute.Attribute{Key: "k", Value: "v"})
	require.ErrorIs(t, err, ErrSignedOut)

	// other sessions are unaffected
	_, err = other.FetchAttributes(ctx)
	require.NoError(t, err)

	_, err = dir.Resume(ctx, sb.SessionID(), "jask")
	require.ErrorIs(t, err, ErrSignedOut)
	_, err = dir.Resume(ctx, "missing", "jask")
	require.ErrorIs(t, err, ErrNotFound)

	resumed, err := dir.Resume(ctx, other.SessionID(), "jask")
	require.NoError(t, err)
	require.Equal(t, other.UserID(), resumed.UserID())

	_, err = dir.SignIn(ctx, " ")
	require.Error(t, err)
}

func TestDirectoryAccounts(t *testing.T) {
	dir, ctx := setupDirectory(t)

	accounts, err := dir.Accounts(ctx)
	require.NoError(t, err)
	require.Empty(t, accounts)

	sb, err := dir.SignIn(ctx, "zed")
	require.NoError(t, err)
	_, err = dir.SignIn(ctx, "zed")
	require.NoError(t, err)
	_, err = dir.SignIn(ctx, "jask")
	require.NoError(t, err)
	require.NoError(t, sb.SignOut(ctx))

	accounts, err = dir.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "jask", accounts[0].Username)
	require.Len(t, accounts[0].Sessions, 1)
	require.Equal(t, "zed", accounts[1].Username)
	require.Len(t, accounts[1].Sessions, 1)
	require.NotEqual(t, sb.SessionID(), accounts[1].Sessions[0].ID)
}

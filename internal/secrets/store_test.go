package secrets

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only drives os.UserConfigDir on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestTokenRoundTrip(t *testing.T) {
	dir := useTempConfigDir(t)

	exp := now.Add(time.Hour)
	require.NoError(t, StoreToken(" Default ", Token{Value: "tok-123", Username: "jask", ExpiresAt: exp}))
	got, err := FetchToken("default", now)
	require.NoError(t, err)
	require.Equal(t, "tok-123", got.Value)
	require.Equal(t, "jask", got.Username)
	require.True(t, exp.Equal(got.ExpiresAt))

	raw, err := os.ReadFile(filepath.Join(dir, "attredit", fileName))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "tok-123")
	require.Contains(t, string(raw), `"username": "jask"`)

	info, err := os.Stat(filepath.Join(dir, "attredit", fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, DeleteToken("default"))
	_, err = FetchToken("default", now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredTokenIsRefused(t *testing.T) {
	useTempConfigDir(t)

	exp := now.Add(-time.Minute)
	require.NoError(t, StoreToken("default", Token{Value: "old", Username: "jask", ExpiresAt: exp}))

	got, err := FetchToken("default", now)
	require.ErrorIs(t, err, ErrExpired)
	require.Empty(t, got.Value)
	require.Equal(t, "jask", got.Username)

	got, err = FetchToken("default", exp.Add(-time.Second))
	require.NoError(t, err)
	require.Equal(t, "old", got.Value)
}

func TestTokenWithoutExpiryNeverExpires(t *testing.T) {
	useTempConfigDir(t)

	require.NoError(t, StoreToken("default", Token{Value: "opaque"}))
	got, err := FetchToken("default", now.AddDate(50, 0, 0))
	require.NoError(t, err)
	require.Equal(t, "opaque", got.Value)
	require.True(t, got.ExpiresAt.IsZero())
	require.NoError(t, got.Check(now))
}

func TestTokenProfilesAreIndependent(t *testing.T) {
	useTempConfigDir(t)

	require.NoError(t, StoreToken("sandbox", Token{Value: "a"}))
	require.NoError(t, StoreToken("prod", Token{Value: "b"}))
	require.NoError(t, StoreToken("sandbox", Token{Value: "c"}))

	got, err := FetchToken("sandbox", now)
	require.NoError(t, err)
	require.Equal(t, "c", got.Value)
	got, err = FetchToken("prod", now)
	require.NoError(t, err)
	require.Equal(t, "b", got.Value)
}

func TestTokenProfileRequired(t *testing.T) {
	useTempConfigDir(t)

	require.Error(t, StoreToken("  ", Token{Value: "x"}))
	require.Error(t, StoreToken("default", Token{Value: " "}))
	_, err := FetchToken("", now)
	require.Error(t, err)
	require.Error(t, DeleteToken(""))
}

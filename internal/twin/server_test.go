package twin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/database"
	"github.com/jask/attredit/internal/identity"
	"github.com/jask/attredit/internal/twin"
	"github.com/jask/attredit/internal/workflow"
)

func setupTwin(t *testing.T) (*twin.Server, *httptest.Server) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "twin.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := twin.New(identity.NewDirectory(db), []byte("test-secret"), logger)
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)
	return s, srv
}

func mintToken(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username})
	resp, err := http.Post(srv.URL+"/admin/tokens", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		Token     string `json:"token"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.SessionID)
	return out.Token
}

func TestWorkflowAgainstTwin(t *testing.T) {
	_, srv := setupTwin(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := identity.NewClient(srv.URL, mintToken(t, srv, "jask"))
	require.NoError(t, err)
	require.Equal(t, "jask", client.Username())

	w := workflow.New(client, workflow.WithSession(client))
	require.NoError(t, w.LoadAttributes(ctx))
	before := w.Snapshot().Attributes
	require.NotEmpty(t, before)

	require.NoError(t, w.SelectForEdit(attribute.Attribute{Key: attribute.KeyFavoriteNumber}))
	require.NoError(t, w.EditDraft(func(d *attribute.Draft) { d.Value = "101" }))
	require.NoError(t, w.CommitEdit(ctx))

	after := w.Snapshot().Attributes
	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].Key, after[i].Key)
		if after[i].Key == attribute.KeyFavoriteNumber {
			require.Equal(t, "100", after[i].Value)
		}
	}

	require.NoError(t, w.SignOut(ctx))
	err = w.LoadAttributes(ctx)
	require.ErrorIs(t, err, identity.ErrSignedOut)
	require.Contains(t, w.LatestError(), "Failed to fetch user attributes")
}

func TestTwinAuth(t *testing.T) {
	_, srv := setupTwin(t)

	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/me/attributes", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}

	resp, err := http.Post(srv.URL+"/admin/tokens", "application/json", bytes.NewReader([]byte(`{"username":""}`)))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTwinInjectedFailure(t *testing.T) {
	s, srv := setupTwin(t)
	ctx := context.Background()

	client, err := identity.NewClient(srv.URL, mintToken(t, srv, "jask"))
	require.NoError(t, err)
	w := workflow.New(client)
	require.NoError(t, w.LoadAttributes(ctx))
	require.NoError(t, w.SelectForEdit(attribute.Attribute{Key: attribute.KeyIsBetaUser}))
	require.NoError(t, w.EditDraft(func(d *attribute.Draft) { d.Flip() }))

	require.NoError(t, s.SetFaults(twin.Faults{FailRate: 1}))
	err = w.CommitEdit(ctx)
	var uf *workflow.UpdateFailure
	require.ErrorAs(t, err, &uf)
	require.Equal(t, workflow.StateEditing, w.Snapshot().State)
	require.Equal(t, "true", w.Snapshot().Draft.Value)
	require.Contains(t, w.LatestError(), "injected failure (503)")

	require.NoError(t, s.SetFaults(twin.Faults{}))
	require.NoError(t, w.CommitEdit(ctx))
	require.Equal(t, workflow.StateClosed, w.Snapshot().State)
}

func TestTwinFaultsEndpoint(t *testing.T) {
	s, srv := setupTwin(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/admin/faults", bytes.NewReader([]byte(`{"fail_rate":0.25,"latency":"5ms"}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, twin.Faults{FailRate: 0.25, Latency: 5 * time.Millisecond}, s.Faults())

	req, err = http.NewRequest(http.MethodPut, srv.URL+"/admin/faults", bytes.NewReader([]byte(`{"fail_rate":2}`)))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 0.25, s.Faults().FailRate)
}

func TestTwinFaultsBodyRoundTrips(t *testing.T) {
	s, srv := setupTwin(t)
	require.NoError(t, s.SetFaults(twin.Faults{FailRate: 0.5, Latency: 250 * time.Millisecond}))

	resp, err := http.Get(srv.URL + "/admin/faults")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.JSONEq(t, `{"fail_rate":0.5,"latency":"250ms"}`, string(body))

	require.NoError(t, s.SetFaults(twin.Faults{}))
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/admin/faults", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, twin.Faults{FailRate: 0.5, Latency: 250 * time.Millisecond}, s.Faults())

	var f twin.Faults
	require.Error(t, json.Unmarshal([]byte(`{"latency":250000000}`), &f))
	require.Error(t, json.Unmarshal([]byte(`{"latency":"soon"}`), &f))
}

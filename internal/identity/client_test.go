package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/attredit/internal/attribute"
)

func TestClientRequests(t *testing.T) {
	var gotKey, gotValue, gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/me/attributes", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(AttributesResponse{Attributes: []attribute.Attribute{
			{Key: "email", Value: "jask@example.com"},
			{Key: attribute.KeyIsBetaUser, Value: "false"},
		}})
	})
	mux.HandleFunc("PUT /v1/me/attributes/{key}", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.PathValue("key")
		var req UpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotValue = req.Value
		_ = json.NewEncoder(w).Encode(UpdateResponse{Key: gotKey, Done: true})
	})
	mux.HandleFunc("DELETE /v1/sessions/current", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", "sk_sim_token", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	attrs, err := c.FetchAttributes(ctx)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	require.Equal(t, "Bearer sk_sim_token", gotAuth)

	res, err := c.UpdateAttribute(ctx, attribute.Attribute{Key: attribute.KeyDisplayName, Value: "Jas"})
	require.NoError(t, err)
	require.True(t, res.Done)
	require.Equal(t, attribute.KeyDisplayName, gotKey)
	require.Equal(t, "Jas", gotValue)

	require.NoError(t, c.SignOut(ctx))
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "session has been signed out"})
		case http.MethodPut:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "tok")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.FetchAttributes(ctx)
	require.ErrorIs(t, err, ErrSignedOut)
	require.EqualError(t, err, "session has been signed out (401)")

	_, err = c.UpdateAttribute(ctx, attribute.Attribute{Key: "k", Value: "v"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "upstream down", apiErr.Message)

	err = c.SignOut(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "store returned 404")

	_, err = c.UpdateAttribute(ctx, attribute.Attribute{})
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "tok")
	require.Error(t, err)
	_, err = NewClient("not a url", "tok")
	require.Error(t, err)
	_, err = NewClient("http://localhost:8089", " ")
	require.Error(t, err)
}

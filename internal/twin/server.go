// Package twin serves the sandbox identity store over REST so the screen can
// run against a separate process the way it would against the real service.
package twin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/identity"
)

// Faults are injected into /v1 routes at runtime. On the wire latency is a
// duration string such as "250ms".
type Faults struct {
	FailRate float64
	Latency  time.Duration
}

type faultsJSON struct {
	FailRate float64 `json:"fail_rate"`
	Latency  string  `json:"latency,omitempty"`
}

func (f Faults) MarshalJSON() ([]byte, error) {
	out := faultsJSON{FailRate: f.FailRate}
	if f.Latency != 0 {
		out.Latency = f.Latency.String()
	}
	return json.Marshal(out)
}

func (f *Faults) UnmarshalJSON(data []byte) error {
	var in faultsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*f = Faults{FailRate: in.FailRate}
	if in.Latency == "" {
		return nil
	}
	d, err := time.ParseDuration(in.Latency)
	if err != nil {
		return fmt.Errorf("latency: %w", err)
	}
	f.Latency = d
	return nil
}

// Server is the sandbox twin.
type Server struct {
	Router *chi.Mux

	dir      *identity.Directory
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	faults Faults
}

type ctxKey struct{}

func New(dir *identity.Directory, secret []byte, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Router:   chi.NewRouter(),
		dir:      dir,
		secret:   secret,
		tokenTTL: 12 * time.Hour,
		logger:   logger,
	}
	s.Router.Use(chimw.RequestID)
	s.Router.Use(chimw.RealIP)
	s.Router.Use(s.requestLog)
	s.Router.Use(chimw.Recoverer)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Post("/admin/tokens", s.createToken)
	s.Router.Get("/admin/faults", s.getFaults)
	s.Router.Put("/admin/faults", s.setFaults)

	s.Router.Route("/v1", func(r chi.Router) {
		r.Use(s.auth)
		r.Use(s.injectFaults)

		r.Get("/me/attributes", s.listAttributes)
		r.Put("/me/attributes/{key}", s.updateAttribute)
		r.Delete("/sessions/current", s.signOut)
	})
}

// SetFaults replaces the runtime faults after validating them.
func (s *Server) SetFaults(f Faults) error {
	if f.FailRate < 0 || f.FailRate > 1 {
		return fmt.Errorf("fail_rate must be between 0.0 and 1.0")
	}
	if f.Latency < 0 {
		return fmt.Errorf("latency must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = f
	return nil
}

func (s *Server) Faults() Faults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faults
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting sandbox twin", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down sandbox twin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type tokenRequest struct {
	Username string `json:"username"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	sb, err := s.dir.SignIn(r.Context(), req.Username)
	if err != nil {
		s.logger.Error("sign in", "username", req.Username, "err", err)
		writeError(w, http.StatusInternalServerError, "could not open session")
		return
	}
	token, err := identity.MintToken(s.secret, sb, s.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, SessionID: sb.SessionID(), UserID: sb.UserID()})
}

func (s *Server) getFaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Faults())
}

func (s *Server) setFaults(w http.ResponseWriter, r *http.Request) {
	var f Faults
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.SetFaults(f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Faults())
}

func (s *Server) listAttributes(w http.ResponseWriter, r *http.Request) {
	sb := sandboxFrom(r.Context())
	attrs, err := sb.FetchAttributes(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if attrs == nil {
		attrs = []attribute.Attribute{}
	}
	writeJSON(w, http.StatusOK, identity.AttributesResponse{Attributes: attrs})
}

func (s *Server) updateAttribute(w http.ResponseWriter, r *http.Request) {
	sb := sandboxFrom(r.Context())
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attribute key")
		return
	}
	var req identity.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := sb.UpdateAttribute(r.Context(), attribute.Attribute{Key: key, Value: req.Value})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identity.UpdateResponse{Key: res.Key, Done: res.Done, Next: res.Next})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	sb := sandboxFrom(r.Context())
	if err := sb.SignOut(r.Context()); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrSignedOut):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("store", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func sandboxFrom(ctx context.Context) *identity.Sandbox {
	sb, _ := ctx.Value(ctxKey{}).(*identity.Sandbox)
	return sb
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, identity.ErrorResponse{Error: message})
}

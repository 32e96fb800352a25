// Package identity holds the adapters between the attribute workflow and an
// identity store: a sqlite-backed sandbox for local runs and a REST client.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/database"
	"github.com/jask/attredit/internal/database/repository"
	"github.com/jask/attredit/internal/workflow"
)

var (
	ErrSignedOut  = errors.New("session has been signed out")
	ErrNotFound   = errors.New("not found")
	ErrInvalidKey = errors.New("attribute key is required")
)

// Directory is the multi-user view of the sandbox database.
type Directory struct {
	db       *sql.DB
	users    *repository.UserRepo
	attrs    *repository.AttributeRepo
	sessions *repository.SessionRepo
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{
		db:       db,
		users:    repository.NewUserRepo(db),
		attrs:    repository.NewAttributeRepo(db),
		sessions: repository.NewSessionRepo(db),
	}
}

// SignIn opens a new session for username, creating the user with a default
// profile on first use. The sandbox takes no credentials.
func (d *Directory) SignIn(ctx context.Context, username string) (*Sandbox, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("sign in: username required")
	}
	userID, err := database.SeedDefaults(ctx, d.db, username)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	sid := uuid.NewString()
	if err := d.sessions.Create(ctx, repository.Session{ID: sid, UserID: userID}); err != nil {
		return nil, fmt.Errorf("sign in: create session: %w", err)
	}
	return &Sandbox{dir: d, userID: userID, username: username, sessionID: sid}, nil
}

// Resume reattaches to an existing session.
func (d *Directory) Resume(ctx context.Context, sessionID, username string) (*Sandbox, error) {
	s, err := d.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	if s == nil {
		return nil, ErrNotFound
	}
	if s.RevokedAt != nil {
		return nil, ErrSignedOut
	}
	return &Sandbox{dir: d, userID: s.UserID, username: username, sessionID: s.ID}, nil
}

// Account is a sandbox user and the sessions still open for it.
type Account struct {
	Username string
	Sessions []repository.Session
}

// Accounts lists every sandbox user by username with its open sessions.
func (d *Directory) Accounts(ctx context.Context) ([]Account, error) {
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]Account, 0, len(users))
	for _, u := range users {
		open, err := d.sessions.ListActive(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list sessions for %s: %w", u.Username, err)
		}
		out = append(out, Account{Username: u.Username, Sessions: open})
	}
	return out, nil
}

// Sandbox is one signed-in user's view of the sandbox. It implements
// workflow.Store and workflow.Session.
type Sandbox struct {
	dir       *Directory
	userID    string
	username  string
	sessionID string
}

var (
	_ workflow.Store   = (*Sandbox)(nil)
	_ workflow.Session = (*Sandbox)(nil)
)

func (s *Sandbox) Username() string  { return s.username }
func (s *Sandbox) UserID() string    { return s.userID }
func (s *Sandbox) SessionID() string { return s.sessionID }

func (s *Sandbox) FetchAttributes(ctx context.Context) ([]attribute.Attribute, error) {
	if err := s.active(ctx); err != nil {
		return nil, err
	}
	rows, err := s.dir.attrs.List(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	out := make([]attribute.Attribute, 0, len(rows))
	for _, r := range rows {
		out = append(out, attribute.Attribute{Key: r.Key, Value: r.Value})
	}
	return out, nil
}

func (s *Sandbox) UpdateAttribute(ctx context.Context, a attribute.Attribute) (workflow.UpdateResult, error) {
	if strings.TrimSpace(a.Key) == "" {
		return workflow.UpdateResult{}, ErrInvalidKey
	}
	if err := s.active(ctx); err != nil {
		return workflow.UpdateResult{}, err
	}
	if err := s.dir.attrs.Upsert(ctx, s.userID, a.Key, a.Value); err != nil {
		return workflow.UpdateResult{}, fmt.Errorf("update %s: %w", a.Key, err)
	}
	return workflow.UpdateResult{Key: a.Key, Done: true}, nil
}

func (s *Sandbox) SignOut(ctx context.Context) error {
	if err := s.dir.sessions.Revoke(ctx, s.sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Sandbox) active(ctx context.Context) error {
	sess, err := s.dir.sessions.Get(ctx, s.sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.RevokedAt != nil {
		return ErrSignedOut
	}
	return nil
}

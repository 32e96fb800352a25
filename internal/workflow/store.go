package workflow

import (
	"context"

	"github.com/jask/attredit/internal/attribute"
)

// Store is the external attribute store.
type Store interface {
	FetchAttributes(ctx context.Context) ([]attribute.Attribute, error)
	// UpdateAttribute upserts one attribute by key. The result is
	// informational; the next fetch is the canonical state.
	UpdateAttribute(ctx context.Context, a attribute.Attribute) (UpdateResult, error)
}

// Session is the signed-in identity the screen runs under.
type Session interface {
	Username() string
	SignOut(ctx context.Context) error
}

// UpdateResult describes what the store did with an update.
type UpdateResult struct {
	Key  string
	Done bool
	// Next is a follow-up step the store requires before the change is
	// applied, e.g. confirming a verification code. Empty when Done.
	Next string
}

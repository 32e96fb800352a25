// Package workflow drives the attribute editor: loading the collection,
// opening a draft, committing it and refreshing from the store.
package workflow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jask/attredit/internal/attribute"
)

// State is the editor session state.
type State int

const (
	StateClosed State = iota
	StateEditing
)

func (s State) String() string {
	if s == StateEditing {
		return "editing"
	}
	return "closed"
}

// Workflow is safe for concurrent use. Its mutex guards the collection and
// the draft and is never held across a store call.
type Workflow struct {
	store   Store
	session Session
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	attrs   []attribute.Attribute
	draft   *attribute.Draft
	state   State
	lastErr error
	loadSeq uint64
	doneSeq uint64
}

type Option func(*Workflow)

func WithSession(s Session) Option {
	return func(w *Workflow) { w.session = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock sets the clock used for "now" fallbacks in date drafts.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

func New(store Store, opts ...Option) *Workflow {
	w := &Workflow{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LoadAttributes fetches the full collection and replaces the in-memory one.
// On failure the previous collection is kept and the failure becomes the
// latest error. A response that arrives after a newer load has completed is
// dropped.
func (w *Workflow) LoadAttributes(ctx context.Context) error {
	w.mu.Lock()
	w.loadSeq++
	seq := w.loadSeq
	w.mu.Unlock()

	fetched, err := w.store.FetchAttributes(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq < w.doneSeq {
		w.logger.Debug("dropping stale attribute load", "seq", seq, "done", w.doneSeq)
		return nil
	}
	w.doneSeq = seq
	if err != nil {
		w.lastErr = &LoadFailure{Err: err}
		w.logger.Warn("load attributes", "seq", seq, "err", err)
		return w.lastErr
	}
	w.attrs = stableMerge(w.attrs, fetched)
	w.lastErr = nil
	w.logger.Debug("attributes loaded", "seq", seq, "count", len(w.attrs))
	return nil
}

// SelectForEdit opens a draft for the attribute with a's key, seeded from the
// loaded value.
func (w *Workflow) SelectForEdit(a attribute.Attribute) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, cur := range w.attrs {
		if cur.Key == a.Key {
			w.draft = attribute.NewDraft(cur, w.now)
			w.state = StateEditing
			return nil
		}
	}
	return ErrUnknownAttribute
}

// ResolveEditor returns the editor kind for key.
func (w *Workflow) ResolveEditor(key string) attribute.Kind {
	return attribute.ResolveEditor(key)
}

// EditDraft applies fn to the open draft.
func (w *Workflow) EditDraft(fn func(d *attribute.Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrNoDraft
	}
	fn(w.draft)
	return nil
}

// CommitEdit sends the draft to the store. On success the collection is
// refreshed from the store and the editor closes once the refresh is done;
// the refresh error, if any, is returned and kept as the latest error. On
// failure the editor stays open with the draft unchanged.
func (w *Workflow) CommitEdit(ctx context.Context) error {
	w.mu.Lock()
	draft := w.draft
	if w.state != StateEditing || draft == nil {
		w.mu.Unlock()
		return ErrNoDraft
	}
	attr := draft.Attribute()
	w.mu.Unlock()

	res, err := w.store.UpdateAttribute(ctx, attr)
	if err != nil {
		w.mu.Lock()
		w.lastErr = &UpdateFailure{Key: attr.Key, Err: err}
		w.mu.Unlock()
		w.logger.Warn("update attribute", "key", attr.Key, "err", err)
		return &UpdateFailure{Key: attr.Key, Err: err}
	}
	w.logger.Info("attribute updated", "key", res.Key, "done", res.Done, "next", res.Next)

	w.mu.Lock()
	w.lastErr = nil
	w.mu.Unlock()

	loadErr := w.LoadAttributes(ctx)

	w.mu.Lock()
	// a different draft may have been opened while the update was in flight
	if w.draft == draft {
		w.draft = nil
		w.state = StateClosed
	}
	w.mu.Unlock()
	return loadErr
}

// CancelEdit discards the draft.
func (w *Workflow) CancelEdit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = nil
	w.state = StateClosed
}

// SignOut ends the injected session. On success the collection and any draft
// are dropped.
func (w *Workflow) SignOut(ctx context.Context) error {
	if w.session == nil {
		w.mu.Lock()
		w.lastErr = &SignOutFailure{Err: ErrNoSession}
		w.mu.Unlock()
		return &SignOutFailure{Err: ErrNoSession}
	}
	if err := w.session.SignOut(ctx); err != nil {
		w.mu.Lock()
		w.lastErr = &SignOutFailure{Err: err}
		w.mu.Unlock()
		w.logger.Warn("sign out", "err", err)
		return &SignOutFailure{Err: err}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attrs = nil
	w.draft = nil
	w.state = StateClosed
	w.lastErr = nil
	// invalidate loads that are still in flight
	w.doneSeq = w.loadSeq + 1
	w.loadSeq = w.doneSeq
	w.logger.Info("signed out")
	return nil
}

// Username of the injected session, or "".
func (w *Workflow) Username() string {
	if w.session == nil {
		return ""
	}
	return w.session.Username()
}

// LatestError is the message of the most recent failure, or "".
func (w *Workflow) LatestError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastErr == nil {
		return ""
	}
	return w.lastErr.Error()
}

// Snapshot is a point-in-time copy of the workflow for rendering.
type Snapshot struct {
	Attributes []attribute.Attribute
	State      State
	Draft      *attribute.Draft
	Err        error
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot{
		Attributes: append([]attribute.Attribute(nil), w.attrs...),
		State:      w.state,
		Err:        w.lastErr,
	}
	if w.draft != nil {
		d := *w.draft
		s.Draft = &d
	}
	return s
}

// stableMerge returns fetched in the order of prev: keys already present keep
// their position, new keys follow in fetch order, missing keys are dropped.
// A key repeated in fetched keeps its first position and its last value.
func stableMerge(prev, fetched []attribute.Attribute) []attribute.Attribute {
	values := make(map[string]string, len(fetched))
	order := make([]string, 0, len(fetched))
	for _, a := range fetched {
		if _, ok := values[a.Key]; !ok {
			order = append(order, a.Key)
		}
		values[a.Key] = a.Value
	}

	out := make([]attribute.Attribute, 0, len(order))
	placed := make(map[string]bool, len(order))
	for _, a := range prev {
		if v, ok := values[a.Key]; ok && !placed[a.Key] {
			out = append(out, attribute.Attribute{Key: a.Key, Value: v})
			placed[a.Key] = true
		}
	}
	for _, k := range order {
		if !placed[k] {
			out = append(out, attribute.Attribute{Key: k, Value: values[k]})
		}
	}
	return out
}

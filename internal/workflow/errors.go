package workflow

import "errors"

var (
	// ErrNoDraft is returned when an operation needs an open editor.
	ErrNoDraft = errors.New("no attribute is being edited")
	// ErrUnknownAttribute is returned when selecting a key that is not in the
	// last loaded collection.
	ErrUnknownAttribute = errors.New("attribute not in the loaded collection")
	// ErrNoSession is returned by SignOut when no session was injected.
	ErrNoSession = errors.New("no signed-in session")
)

// LoadFailure records a failed FetchAttributes call.
type LoadFailure struct {
	Err error
}

func (e *LoadFailure) Error() string {
	return "Failed to fetch user attributes: " + e.Err.Error()
}

func (e *LoadFailure) Unwrap() error { return e.Err }

// UpdateFailure records a failed UpdateAttribute call.
type UpdateFailure struct {
	Key string
	Err error
}

func (e *UpdateFailure) Error() string {
	return "Failed to update user attribute: " + e.Err.Error()
}

func (e *UpdateFailure) Unwrap() error { return e.Err }

// SignOutFailure records a failed SignOut call.
type SignOutFailure struct {
	Err error
}

func (e *SignOutFailure) Error() string {
	return "Failed to sign out: " + e.Err.Error()
}

func (e *SignOutFailure) Unwrap() error { return e.Err }

package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a StoreError.
type Kind int

const (
	// KindUnavailable covers network, backend and missing-identity failures.
	KindUnavailable Kind = iota
	// KindNotFound is returned when an entry id is not in the caller's collection.
	KindNotFound
	// KindPermissionDenied is returned when the backend refuses the caller.
	KindPermissionDenied
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StoreError is returned by every ledger operation that fails.
type StoreError struct {
	Err  error
	Op   string
	Kind Kind
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ledger %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrNoIdentity is wrapped when an operation is attempted without a signed-in user.
var ErrNoIdentity = errors.New("no identity")

// Unavailable wraps err as a KindUnavailable StoreError.
func Unavailable(op string, err error) *StoreError {
	return &StoreError{Op: op, Kind: KindUnavailable, Err: err}
}

// NotFound builds a KindNotFound StoreError for entryID.
func NotFound(op, entryID string) *StoreError {
	return &StoreError{Op: op, Kind: KindNotFound, Err: fmt.Errorf("entry %q", entryID)}
}

// PermissionDenied wraps err as a KindPermissionDenied StoreError.
func PermissionDenied(op string, err error) *StoreError {
	return &StoreError{Op: op, Kind: KindPermissionDenied, Err: err}
}

// KindOf returns the kind of the first StoreError in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsNotFound reports whether err is a KindNotFound StoreError.
func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}

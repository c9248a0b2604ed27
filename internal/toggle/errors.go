package toggle

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure. The set is closed: gateways map every
// backend error onto one of these before it reaches a reconciler.
type Kind int

const (
	// KindOther is any failure that has no dedicated handling.
	KindOther Kind = iota
	// KindConflict is a unique-constraint violation on insert.
	KindConflict
	// KindPermission is a row-level or role permission rejection.
	KindPermission
	// KindNotFound means the addressed row does not exist.
	KindNotFound
	// KindUnavailable means the backend could not be reached.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "other"
	}
}

// Error is the typed error returned by Gateway implementations.
type Error struct {
	Kind Kind
	// Code is the backend error code when one was reported (e.g. SQLSTATE 23505).
	Code string
	Op   string
	Err  error
}

// NewError wraps err with a kind and the gateway operation that produced it.
func NewError(kind Kind, code, op string, err error) *Error {
	return &Error{Kind: kind, Code: code, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind carried by err. Untyped errors are KindOther.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}

// IsConflict reports whether err is a unique-constraint violation.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

var (
	// ErrNoActor is returned when a toggle is attempted without an acting identity.
	ErrNoActor = errors.New("toggle: acting identity is absent")
	// ErrSelfTarget is returned when the actor and the target are the same identity.
	ErrSelfTarget = errors.New("toggle: actor cannot target itself")
	// ErrInFlight is returned when a toggle is already outstanding on the same reconciler.
	ErrInFlight = errors.New("toggle: a toggle is already in flight")
)

// IsRejection reports whether err is a local rejection that never reached the gateway.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoActor) || errors.Is(err, ErrSelfTarget) || errors.Is(err, ErrInFlight)
}

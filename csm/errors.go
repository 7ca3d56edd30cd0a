package csm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds for the Consensus State Machine, named directly after the
// kinds enumerated in the teacher/original's crates/db/src/errors.rs
// DbError plus the tree/transition-specific kinds the worker needs.
type ErrorKind int

const (
	StorageFailure ErrorKind = iota
	OutOfOrder
	MissingEvent
	MissingL2Block
	MissingL1BlockHeight
	AttachMissingParent
	BlockAlreadyAttached
	BadRange
	BeyondTip
	EmptyJournal
	NotBootstrapped
	Overwrite
	Gap
	MissingBlock
	SigningFailure
	Unsupported
	Unimplemented
)

func (k ErrorKind) String() string {
	switch k {
	case StorageFailure:
		return "StorageFailure"
	case OutOfOrder:
		return "OutOfOrder"
	case MissingEvent:
		return "MissingEvent"
	case MissingL2Block:
		return "MissingL2Block"
	case MissingL1BlockHeight:
		return "MissingL1BlockHeight"
	case AttachMissingParent:
		return "AttachMissingParent"
	case BlockAlreadyAttached:
		return "BlockAlreadyAttached"
	case BadRange:
		return "BadRange"
	case BeyondTip:
		return "BeyondTip"
	case EmptyJournal:
		return "EmptyJournal"
	case NotBootstrapped:
		return "NotBootstrapped"
	case Overwrite:
		return "Overwrite"
	case Gap:
		return "Gap"
	case MissingBlock:
		return "MissingBlock"
	case SigningFailure:
		return "SigningFailure"
	case Unsupported:
		return "Unsupported"
	case Unimplemented:
		return "Unimplemented"
	default:
		return "Unknown"
	}
}

// Error is the CSM's uniform error type: a kind plus the offending
// argument(s), wrapping its cause with github.com/pkg/errors the same way
// the teacher's node/service.go wraps database-open failures, so the
// original cause and its stack trace survive underneath the kind.
type Error struct {
	Kind ErrorKind
	Args []interface{}
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s%v: %v", e.Kind, e.Args, e.Err)
	}
	return fmt.Sprintf("%s%v", e.Kind, e.Args)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause satisfies pkg/errors' causer interface so errors.Cause(err) walks
// through the Kind wrapper to the underlying failure.
func (e *Error) Cause() error { return e.Err }

func newErr(kind ErrorKind, args ...interface{}) *Error {
	return &Error{Kind: kind, Args: args}
}

// wrapErr wraps cause with errors.Wrap before attaching it, so the
// resulting error carries a stack trace from the wrap site the way the
// teacher's pkg/errors.Wrap calls do.
func wrapErr(kind ErrorKind, cause error, args ...interface{}) *Error {
	return &Error{Kind: kind, Args: args, Err: errors.Wrap(cause, kind.String())}
}

// IsKind reports whether err, or any cause in its chain, is a *Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			return false
		}
		err = cause
	}
	return false
}

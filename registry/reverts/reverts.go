// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation. Every failure leaves the registry
// unchanged; a kind tells the caller why the call was rejected.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidArgument
	KindInvalidStateTransition
	KindNoOp
	KindUnauthorized
	KindCapacityExceeded
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindInvalidStateTransition:
		return "invalid state transition"
	case KindNoOp:
		return "no-op"
	case KindUnauthorized:
		return "unauthorized"
	case KindCapacityExceeded:
		return "capacity exceeded"
	default:
		return "unknown"
	}
}

type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, format string, args ...any) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
	}
}

func NotFound(format string, args ...any) *ErrRevert {
	return New(KindNotFound, format, args...)
}

func InvalidArgument(format string, args ...any) *ErrRevert {
	return New(KindInvalidArgument, format, args...)
}

func InvalidStateTransition(format string, args ...any) *ErrRevert {
	return New(KindInvalidStateTransition, format, args...)
}

func NoOp(format string, args ...any) *ErrRevert {
	return New(KindNoOp, format, args...)
}

func Unauthorized(format string, args ...any) *ErrRevert {
	return New(KindUnauthorized, format, args...)
}

func CapacityExceeded(format string, args ...any) *ErrRevert {
	return New(KindCapacityExceeded, format, args...)
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// IsRevertErr reports whether err is a rejected registry operation,
// as opposed to an infrastructure failure.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of err, or KindUnknown if err is not a revert.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsInvalidArgument(err error) bool   { return KindOf(err) == KindInvalidArgument }
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidStateTransition }
func IsNoOp(err error) bool              { return KindOf(err) == KindNoOp }
func IsUnauthorized(err error) bool      { return KindOf(err) == KindUnauthorized }
func IsCapacityExceeded(err error) bool  { return KindOf(err) == KindCapacityExceeded }

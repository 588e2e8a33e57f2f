// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package clsterr defines the node-wide typed error kinds described by the
// error handling design: every failure the chain, store, or network layers
// raise carries one of these stable kinds plus a human-readable reason.
package clsterr

import "fmt"

// Kind is a stable error-kind tag. Callers branch on Kind rather than on
// error string contents.
type Kind int

const (
	// InvalidTransaction covers structural, hash-mismatch, signature, or
	// insufficient-balance failures on a single transaction.
	InvalidTransaction Kind = iota

	// InvalidBlock covers hash mismatch, link mismatch, unmet difficulty
	// target, bad coinbase, or a contained invalid transaction.
	InvalidBlock

	// ChainIntegrity covers same-height divergence or a candidate chain
	// whose genesis does not match ours.
	ChainIntegrity

	// MiningForbidden covers a wallet node mining attempt or an
	// exhausted empty-block quota.
	MiningForbidden

	// Store covers KV I/O failure or corrupt (undeserializable) values.
	Store

	// Network covers connect-refused, read/write failure, or a framing
	// violation at the transport level.
	Network

	// Protocol covers a malformed message: wrong field count or an
	// unknown type tag.
	Protocol
)

// String renders the kind for logging.
func (k Kind) String() string {
	switch k {
	case InvalidTransaction:
		return "InvalidTransaction"
	case InvalidBlock:
		return "InvalidBlock"
	case ChainIntegrity:
		return "ChainIntegrity"
	case MiningForbidden:
		return "MiningForbidden"
	case Store:
		return "Store"
	case Network:
		return "Network"
	case Protocol:
		return "Protocol"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every component-level
// operation described in the error handling design. It wraps an optional
// cause so callers can still errors.Unwrap/errors.Is through to the root.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap builds an *Error wrapping cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindIs reports whether err is an *Error of the given Kind. Only err itself
// is inspected: an *Error wrapped inside some other error is not found.
func KindIs(err error, kind Kind) bool {
	var e *Error
	if err == nil {
		return false
	}
	if ce, ok := err.(*Error); ok {
		e = ce
	} else {
		return false
	}
	return e.Kind == kind
}

// Package crawlerrors defines the typed error kinds a device worker can
// fail with (§7), so the crawler can bucket a failure into visited/failed/
// unreachable without string-matching an error message.
package crawlerrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the dispositions in spec.md §7.
type Kind string

const (
	KindUnreachable        Kind = "unreachable"
	KindAuthFailure        Kind = "auth_failure"
	KindTransport          Kind = "transport_error"
	KindPromptUndetected   Kind = "prompt_undetected"
	KindPagingFailed       Kind = "paging_failed"
	KindVersionParseFailed Kind = "version_parse_failed"
	KindNeighborParseFailed Kind = "neighbor_parse_failed"
	KindBlacklisted        Kind = "blacklisted"
	KindCancelled          Kind = "cancelled"
)

// KindError is the common shape of every typed error in this package: a
// kind, the address it happened on, and the underlying cause (if any).
type KindError struct {
	kind    Kind
	Address string
	Reason  string
	Cause   error
}

func (e *KindError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.kind, e.Address)
	}
	return fmt.Sprintf("%s: %s: %s", e.kind, e.Address, e.Reason)
}

func (e *KindError) Unwrap() error {
	return e.Cause
}

// ErrorKind reports which §7 disposition this error carries.
func (e *KindError) ErrorKind() Kind {
	return e.kind
}

func newKindError(kind Kind, address, reason string, cause error) *KindError {
	return &KindError{kind: kind, Address: address, Reason: reason, Cause: cause}
}

// UnreachableError: TCP probe to port 22 failed. No retry.
func UnreachableError(address string, cause error) *KindError {
	return newKindError(KindUnreachable, address, "", cause)
}

// AuthFailureError: SSH handshake rejected credentials. Retried once with
// alternate credentials if the caller configured them.
func AuthFailureError(address string, cause error) *KindError {
	return newKindError(KindAuthFailure, address, "", cause)
}

// TransportError: mid-session I/O error (channel closed, read/write
// failure). No retry.
func TransportError(address, reason string, cause error) *KindError {
	return newKindError(KindTransport, address, reason, cause)
}

// PromptUndetectedError: phase 1 (prompt detect) timed out without
// recognizing a trailing prompt character.
func PromptUndetectedError(address string) *KindError {
	return newKindError(KindPromptUndetected, address, "", nil)
}

// PagingFailedError: phase 2 exhausted every vendor command set without one
// completing cleanly.
func PagingFailedError(address string) *KindError {
	return newKindError(KindPagingFailed, address, "", nil)
}

// VersionParseFailedError: phase 3 found no template that scored against
// `show version` output.
func VersionParseFailedError(address string) *KindError {
	return newKindError(KindVersionParseFailed, address, "", nil)
}

// NeighborParseFailedError: the neighbor collector found no template that
// scored. Unlike the other kinds this is not fatal to the device. The
// neighbor.Collector does not return it: an unscored command simply adds
// no peers, and the worker reports success.
func NeighborParseFailedError(address, command string) *KindError {
	return newKindError(KindNeighborParseFailed, address, command, nil)
}

// BlacklistedError: the detected prompt matched an operator-supplied deny
// pattern.
func BlacklistedError(address, pattern string) *KindError {
	return newKindError(KindBlacklisted, address, pattern, nil)
}

// CancelledError: cooperative shutdown observed mid-phase. The in-progress
// device record is discarded, not recorded as failed.
func CancelledError(address string) *KindError {
	return newKindError(KindCancelled, address, "", nil)
}

// IsAuthFailure reports whether err (or anything it wraps) is an
// AuthFailure, the only kind the crawler retries with alternate
// credentials.
func IsAuthFailure(err error) bool {
	var ke *KindError
	return errors.As(err, &ke) && ke.kind == KindAuthFailure
}

// As extracts the Kind of err, or anything it wraps, if it is a
// *KindError.
func As(err error) (Kind, bool) {
	var ke *KindError
	if !errors.As(err, &ke) {
		return "", false
	}
	return ke.kind, true
}

package errors

import (
	"fmt"
	"strings"
)

// Tagging error kinds. Compare with Is; every error returned by the tagging
// core for these situations wraps exactly one of them.
var (
	// ErrParseDegraded marks a tag string whose quoting was malformed and was
	// split on the delimiter alone. Logged, never returned from write paths.
	ErrParseDegraded = New("tag string parse degraded")

	// ErrUnknownContext is returned when a context name was never registered
	// for the taggable kind.
	ErrUnknownContext = New("unknown tag context")

	// ErrTypeMismatch is returned when an explicit tag type restriction does
	// not correspond to a registered type.
	ErrTypeMismatch = New("tag type mismatch")

	// ErrSyncConflict is returned when a uniqueness race could not be resolved
	// within the configured number of attempts. Retryable.
	ErrSyncConflict = New("tag synchronization conflict")

	// ErrPartialSync is matched by *PartialSyncError. Retryable.
	ErrPartialSync = New("partial tag synchronization")
)

// NewUnknownContextError reports an unregistered context for a taggable kind.
func NewUnknownContextError(kind, context string) error {
	err := Wrapf(ErrUnknownContext, "context %q on kind %q", context, kind)
	return WithHint(err, "register the context on the kind (or one of its parents) before tagging")
}

// NewTypeMismatchError reports an explicit type restriction that cannot be honoured.
func NewTypeMismatchError(typeName, reason string) error {
	return Wrapf(ErrTypeMismatch, "type %q: %s", typeName, reason)
}

// PartialSyncError reports the values of one (entity, context, tagger)
// synchronization that were not applied. Values that are not listed were applied.
type PartialSyncError struct {
	Context   string
	TaggerID  int64
	Unapplied []string
	Cause     error
}

func (e *PartialSyncError) Error() string {
	msg := fmt.Sprintf("partial tag synchronization on %q: %d value(s) not applied [%s]",
		e.Context, len(e.Unapplied), strings.Join(e.Unapplied, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrPartialSync) match.
func (e *PartialSyncError) Is(target error) bool {
	return target == ErrPartialSync
}

// Unwrap exposes the cause so errors.Is(err, ErrSyncConflict) also matches.
func (e *PartialSyncError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return err != nil && IsAny(err, ErrSyncConflict, ErrPartialSync)
}

package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrCapacityExceeded is returned by Subscribe when the registry is
// already at its configured maximum (spec I5).
var ErrCapacityExceeded = errors.New("pubsub: active subscription capacity exceeded")

// ErrDisconnected is returned when a producer enqueues an event after the
// dispatcher has shut down.
var ErrDisconnected = errors.New("pubsub: dispatcher is shut down")

// errMissingBank signals that the commitment resolver picked a slot with
// no corresponding bank. It never escapes the match-and-notify cycle: the
// subscription is simply skipped for this event.
var errMissingBank = errors.New("pubsub: no bank for resolved slot")

// panicProgrammingError logs at ERROR and panics. Used for conditions the
// spec calls "programming errors" — serialization failures, checked-
// arithmetic overflow in the recent-items buffer, and an unreachable
// subscription-kind branch in an exhaustive switch. None of these are
// expected to occur; they indicate corruption, not a client-triggerable
// fault, so recovery is a panic rather than an error return.
func panicProgrammingError(msg string, args ...any) {
	slog.Error(msg, args...)
	panic(fmt.Sprintf("pubsub: programming error: %s", msg))
}

package providers

import (
	"context"
	"errors"
)

// ErrSessionBusy is returned when another turn holds the session lock
var ErrSessionBusy = errors.New("session is processing another turn")

// SessionLocker serializes turns per session. The returned release func
// must be called exactly once.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (release func(), err error)
}

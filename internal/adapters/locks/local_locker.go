package locks

import (
	"context"
	"sync"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// LocalLocker serializes turns within one process. A turn that finds the
// session locked fails fast with ErrSessionBusy.
type LocalLocker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewLocalLocker creates an in-process session locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{active: make(map[string]struct{})}
}

var _ providers.SessionLocker = (*LocalLocker)(nil)

// Lock claims the session or returns ErrSessionBusy
func (l *LocalLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[sessionID]; busy {
		return nil, providers.ErrSessionBusy
	}
	l.active[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, sessionID)
			l.mu.Unlock()
		})
	}, nil
}

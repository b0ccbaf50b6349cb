// Package ledger remembers which members already received the welcome
// prompt. The flag is one-way unless the re-welcome policy calls Forget.
package ledger

import (
	"context"
	"errors"
	"os"
	"sync"

	apperrors "onboarding-bot/internal/common/errors"
	"onboarding-bot/internal/common/logger"
)

// Store persists the whole welcomed set. Save replaces the stored set.
type Store interface {
	Name() string
	Load(ctx context.Context) (map[string]bool, error)
	Save(ctx context.Context, members map[string]bool) error
}

type Ledger struct {
	mu      sync.Mutex
	store   Store
	members map[string]bool
	logger  logger.Logger
}

// Open loads the ledger from store. Missing or unreadable storage yields an
// empty ledger so startup is never blocked.
func Open(ctx context.Context, store Store, log logger.Logger) *Ledger {
	l := &Ledger{
		store:   store,
		members: make(map[string]bool),
		logger:  log.WithFields(map[string]interface{}{"store": store.Name()}),
	}

	members, err := store.Load(ctx)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.logger.Info("welcome ledger not found, starting empty", nil)
	case err != nil:
		l.logger.Warn("welcome ledger unreadable, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		for id, welcomed := range members {
			if welcomed {
				l.members[id] = true
			}
		}
		l.logger.Info("welcome ledger loaded", map[string]interface{}{
			"members": len(l.members),
		})
	}

	return l
}

func (l *Ledger) HasWelcomed(memberID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.members[memberID]
}

// MarkWelcomed records memberID and rewrites the store before returning.
// On a write failure the in-memory flag is kept and a
// PERSISTENCE_WRITE_FAILED error is returned.
func (l *Ledger) MarkWelcomed(ctx context.Context, memberID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.members[memberID] {
		return nil
	}
	l.members[memberID] = true
	return l.persistLocked(ctx)
}

// Forget clears the flag so the member is welcomed again on next join.
func (l *Ledger) Forget(ctx context.Context, memberID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.members[memberID] {
		return nil
	}
	delete(l.members, memberID)
	return l.persistLocked(ctx)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.members)
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	snapshot := make(map[string]bool, len(l.members))
	for id := range l.members {
		snapshot[id] = true
	}
	if err := l.store.Save(ctx, snapshot); err != nil {
		return apperrors.NewPersistenceWriteFailedError(l.store.Name(), err)
	}
	return nil
}

package port

import (
	"context"

	"github.com/mlinyun/user-center/internal/core/domain"
)

// SessionStore keeps the per-client login principal. The store holds one
// well-known value per session identifier; expiry is the store's policy.
type SessionStore interface {
	// Get returns the principal for the session, or repository.ErrNotFound
	// when no login state exists.
	Get(ctx context.Context, sessionID string) (*domain.Principal, error)
	Set(ctx context.Context, sessionID string, principal domain.Principal) error
	Remove(ctx context.Context, sessionID string) error
}

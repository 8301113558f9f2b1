package port

import (
	"context"

	"github.com/mlinyun/user-center/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus. Publishing is
// best effort: callers log failures but never fail the triggering operation.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserStatusChanged(ctx context.Context, event domain.UserStatusChangedEvent) error
}

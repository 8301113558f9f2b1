package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mlinyun/user-center/internal/core/domain"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("user.registered", event.UserID, event.RegisteredAt, map[string]any{
		"account":     event.Account,
		"planet_code": event.PlanetCode,
		"method":      event.Method,
	})
	return nil
}

// PublishPasswordChanged logs user.password_changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("user.password_changed", event.UserID, event.ChangedAt, map[string]any{
		"changed_by": event.ChangedBy,
	})
	return nil
}

// PublishUserStatusChanged logs user.status_changed events.
func (p *StubPublisher) PublishUserStatusChanged(_ context.Context, event domain.UserStatusChangedEvent) error {
	p.logEvent("user.status_changed", event.UserID, event.ChangedAt, map[string]any{
		"old_status": string(event.OldStatus),
		"new_status": string(event.NewStatus),
		"changed_by": event.ChangedBy,
	})
	return nil
}

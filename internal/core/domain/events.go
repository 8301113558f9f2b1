package domain

import "time"

// UserRegisteredEvent represents the payload for usercenter.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Account      string
	PlanetCode   string
	RegisteredAt time.Time
	Method       string
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for usercenter.user.password_changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    int64
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// UserStatusChangedEvent represents the payload for usercenter.user.status_changed
// messages, emitted on ban and unban transitions.
type UserStatusChangedEvent struct {
	EventID   string
	UserID    int64
	OldStatus UserStatus
	NewStatus UserStatus
	ChangedAt time.Time
	ChangedBy int64
	Metadata  map[string]any
}

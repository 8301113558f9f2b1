package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/core/port"
	"github.com/mlinyun/user-center/internal/infra/logger"
	"github.com/mlinyun/user-center/internal/infra/security"
	"github.com/mlinyun/user-center/internal/repository"
)

// ChangePasswordInput carries a self-service password change request.
type ChangePasswordInput struct {
	UserID        int64
	OldPassword   string
	NewPassword   string
	CheckPassword string
}

// AuthService verifies credentials, manages the session principal and gates
// role-protected operations.
type AuthService struct {
	users    port.UserRepository
	sessions port.SessionStore
	events   port.EventPublisher
	logger   *zap.Logger
	hashCost int
}

func NewAuthService(users port.UserRepository, sessions port.SessionStore, events port.EventPublisher, logger *zap.Logger, hashCost int) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		events:   events,
		logger:   logger,
		hashCost: hashCost,
	}
}

// Login authenticates the account and stores a sanitized principal under the
// caller's session. Unknown accounts and wrong passwords fail identically so
// the endpoint cannot be used to probe for registered accounts.
func (s *AuthService) Login(ctx context.Context, sessionID, account, password string) (domain.Principal, error) {
	if account == "" || password == "" {
		return domain.Principal{}, fieldError("", "required", "account and password are required")
	}
	if err := validateAccount(account); err != nil {
		return domain.Principal{}, err
	}
	// Login deliberately skips the strength gate so accounts created before
	// the current policy can still sign in.
	if err := validatePasswordBand("userPassword", password); err != nil {
		return domain.Principal{}, err
	}

	user, err := s.users.GetByAccount(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Principal{}, ErrInvalidCredentials
		}
		return domain.Principal{}, fmt.Errorf("load user: %w", err)
	}
	if !security.VerifyPassword(password, user.PasswordHash) {
		return domain.Principal{}, ErrInvalidCredentials
	}
	if user.Status == domain.UserStatusBanned {
		return domain.Principal{}, ErrForbidden
	}

	principal := user.Sanitize()
	if err := s.sessions.Set(ctx, sessionID, principal); err != nil {
		return domain.Principal{}, fmt.Errorf("store session: %w", err)
	}

	// Contact details only ever reach the audit log masked.
	fields := []zap.Field{
		zap.Int64("user_id", user.ID),
		zap.String("account", user.Account),
	}
	if user.Email != nil && *user.Email != "" {
		fields = append(fields, zap.String("email", logger.MaskEmail(*user.Email)))
	}
	if user.Phone != nil && *user.Phone != "" {
		fields = append(fields, zap.String("phone", logger.MaskPhone(*user.Phone)))
	}
	s.logger.Info("user logged in", fields...)

	return principal, nil
}

// CurrentUser resolves the session principal and re-fetches the authoritative
// record. The cached snapshot is never trusted for role or status; an account
// that vanished after login reads as logged out.
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	principal, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if principal == nil || principal.ID <= 0 {
		return nil, ErrNotLoggedIn
	}

	user, err := s.users.GetByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// CurrentPrincipal returns the sanitized view of the current login user.
func (s *AuthService) CurrentPrincipal(ctx context.Context, sessionID string) (domain.Principal, error) {
	user, err := s.CurrentUser(ctx, sessionID)
	if err != nil {
		return domain.Principal{}, err
	}
	return user.Sanitize(), nil
}

// Logout clears the session principal. A logout with no login state is an
// error rather than a silent success.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: not logged in", ErrOperationFailed)
		}
		return fmt.Errorf("read session: %w", err)
	}
	if err := s.sessions.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// RequireRole resolves the current login user and enforces an exact role
// match. An empty required role only checks that a valid session exists.
func (s *AuthService) RequireRole(ctx context.Context, sessionID string, role domain.UserRole) (*domain.User, error) {
	user, err := s.CurrentUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != "" && user.Role != role {
		return nil, ErrNoPermission
	}
	return user, nil
}

// ChangePassword lets the login user rotate their own password. On success
// the current session is force-logged-out; other sessions for the same
// account are unaffected.
func (s *AuthService) ChangePassword(ctx context.Context, sessionID string, input ChangePasswordInput) error {
	user, err := s.CurrentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if input.UserID != user.ID {
		return fmt.Errorf("%w: cannot change another user's password", ErrNoPermission)
	}
	if input.OldPassword == "" || input.NewPassword == "" || input.CheckPassword == "" {
		return fieldError("", "required", "all password fields are required")
	}
	if !security.VerifyPassword(input.OldPassword, user.PasswordHash) {
		return fieldError("rawPassword", "verify", "incorrect original password")
	}
	if err := validatePasswordBand("newPassword", input.NewPassword); err != nil {
		return err
	}
	if err := validatePasswordStrength("newPassword", input.NewPassword); err != nil {
		return err
	}
	if input.NewPassword != input.CheckPassword {
		return fieldError("checkPassword", "match", "password and confirmation do not match")
	}
	if input.NewPassword == input.OldPassword {
		return fieldError("newPassword", "reuse", "new password must differ from the current one")
	}

	hash, err := security.HashPasswordWithCost(input.NewPassword, s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotLoggedIn
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, user.ID, "self")

	// Only the calling session is revoked; there is no global revocation.
	if err := s.sessions.Remove(ctx, sessionID); err != nil {
		s.logger.Warn("failed to clear session after password change",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
	}
	return nil
}

func (s *AuthService) publishPasswordChanged(ctx context.Context, userID int64, changedBy string) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		ChangedAt: time.Now().UTC(),
		ChangedBy: changedBy,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish password changed event",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

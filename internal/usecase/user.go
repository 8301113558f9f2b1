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
	"github.com/mlinyun/user-center/internal/infra/security"
	"github.com/mlinyun/user-center/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// allowedSortFields mirrors the repository's ORDER BY whitelist so an
// unsupported sort field is rejected as bad input instead of silently
// falling back to the default ordering.
var allowedSortFields = map[string]struct{}{
	"id":          {},
	"userAccount": {},
	"userName":    {},
	"userPhone":   {},
	"userEmail":   {},
	"planetCode":  {},
	"createTime":  {},
}

// UpdateProfileInput carries a self-service profile edit. Nil fields are
// left untouched.
type UpdateProfileInput struct {
	UserID    int64
	Name      *string
	AvatarURL *string
	Profile   *string
	Gender    *domain.Gender
	Phone     *string
	Email     *string
}

// AdminCreateUserInput carries an admin-initiated account creation.
type AdminCreateUserInput struct {
	Account       string
	Password      string
	CheckPassword string
	PlanetCode    string
	Name          string
	Role          domain.UserRole
}

// AdminUpdateUserInput carries an admin-initiated partial edit.
type AdminUpdateUserInput struct {
	UserID    int64
	Name      *string
	AvatarURL *string
	Profile   *string
	Gender    *domain.Gender
	Phone     *string
	Email     *string
	Role      *domain.UserRole
}

// ListUsersQuery narrows and paginates the admin user listing.
type ListUsersQuery struct {
	ID             int64
	Account        string
	Name           string
	Profile        string
	Role           domain.UserRole
	Gender         *domain.Gender
	Phone          string
	Email          string
	Status         domain.UserStatus
	PlanetCode     string
	CreatedAtStart *time.Time
	CreatedAtEnd   *time.Time
	SortField      string
	SortAscending  bool
	Current        int
	Size           int
}

// UserPage is one page of sanitized users plus the total match count.
type UserPage struct {
	Users   []domain.Principal
	Total   int64
	Current int
	Size    int
}

// UserService covers self-service profile edits and the admin console
// operations. Authorization happens at the transport boundary via
// AuthService.RequireRole; this service only enforces ownership rules.
type UserService struct {
	users    port.UserRepository
	events   port.EventPublisher
	logger   *zap.Logger
	hashCost int
}

func NewUserService(users port.UserRepository, events port.EventPublisher, logger *zap.Logger, hashCost int) *UserService {
	return &UserService{
		users:    users,
		events:   events,
		logger:   logger,
		hashCost: hashCost,
	}
}

// UpdateProfile applies a partial profile edit for the calling user. Role
// changes are never accepted through this path.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, input UpdateProfileInput) error {
	if input.UserID <= 0 {
		return fieldError("id", "required", "user id is required")
	}
	if actor == nil || actor.ID != input.UserID {
		return fmt.Errorf("%w: cannot edit another user's profile", ErrNoPermission)
	}
	if input.Gender != nil {
		if g := *input.Gender; g != domain.GenderUnknown && g != domain.GenderMale && g != domain.GenderFemale {
			return fieldError("userGender", "enum", "unknown gender value")
		}
	}

	update := domain.UserUpdate{
		ID:        input.UserID,
		Name:      input.Name,
		AvatarURL: input.AvatarURL,
		Profile:   input.Profile,
		Gender:    input.Gender,
		Phone:     input.Phone,
		Email:     input.Email,
	}
	if err := s.users.Update(ctx, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// AdminCreateUser creates an account on behalf of an administrator. The
// same field rules as self-registration apply, confirmation included.
func (s *UserService) AdminCreateUser(ctx context.Context, input AdminCreateUserInput) (int64, error) {
	if input.Account == "" || input.Password == "" || input.CheckPassword == "" || input.PlanetCode == "" {
		return 0, fieldError("", "required", "account, password, confirmation and planet code are required")
	}
	if err := validateAccount(input.Account); err != nil {
		return 0, err
	}
	if err := validatePasswordBand("userPassword", input.Password); err != nil {
		return 0, err
	}
	if err := validatePasswordBand("checkPassword", input.CheckPassword); err != nil {
		return 0, err
	}
	if err := validatePasswordStrength("userPassword", input.Password); err != nil {
		return 0, err
	}
	if input.Password != input.CheckPassword {
		return 0, fieldError("checkPassword", "match", "password and confirmation do not match")
	}
	if err := validatePlanetCode(input.PlanetCode); err != nil {
		return 0, err
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return 0, fieldError("userRole", "enum", "unknown role value")
	}

	exists, err := s.users.ExistsByAccountOrPlanetCode(ctx, input.Account, input.PlanetCode)
	if err != nil {
		return 0, fmt.Errorf("check uniqueness: %w", err)
	}
	if exists {
		return 0, fieldError("userAccount", "unique", uniquenessMessage)
	}

	hash, err := security.HashPasswordWithCost(input.Password, s.hashCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	name := input.Name
	if name == "" {
		name = input.Account
	}
	now := time.Now().UTC()
	user := domain.User{
		Account:      input.Account,
		PasswordHash: hash,
		PlanetCode:   input.PlanetCode,
		Name:         name,
		AvatarURL:    domain.DefaultAvatarURL,
		Profile:      domain.DefaultProfile,
		Role:         role,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, fieldError("userAccount", "unique", uniquenessMessage)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       id,
			Account:      input.Account,
			PlanetCode:   input.PlanetCode,
			RegisteredAt: now,
			Method:       "admin",
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("failed to publish user registered event",
				zap.Int64("user_id", id),
				zap.Error(err))
		}
	}

	return id, nil
}

// AdminGetUser returns the sanitized view of a single user.
func (s *UserService) AdminGetUser(ctx context.Context, id int64) (domain.Principal, error) {
	if id <= 0 {
		return domain.Principal{}, fieldError("id", "required", "user id is required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Principal{}, ErrUserNotFound
		}
		return domain.Principal{}, fmt.Errorf("load user: %w", err)
	}
	return user.Sanitize(), nil
}

// AdminUpdateUser applies a partial edit to any account, including role.
func (s *UserService) AdminUpdateUser(ctx context.Context, input AdminUpdateUserInput) error {
	if input.UserID <= 0 {
		return fieldError("id", "required", "user id is required")
	}
	if input.Role != nil && !input.Role.Valid() {
		return fieldError("userRole", "enum", "unknown role value")
	}
	if input.Gender != nil {
		if g := *input.Gender; g != domain.GenderUnknown && g != domain.GenderMale && g != domain.GenderFemale {
			return fieldError("userGender", "enum", "unknown gender value")
		}
	}

	update := domain.UserUpdate{
		ID:        input.UserID,
		Name:      input.Name,
		AvatarURL: input.AvatarURL,
		Profile:   input.Profile,
		Gender:    input.Gender,
		Phone:     input.Phone,
		Email:     input.Email,
		Role:      input.Role,
	}
	if err := s.users.Update(ctx, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// AdminDeleteUser tombstones an account. Rows are never physically removed.
func (s *UserService) AdminDeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return fieldError("id", "required", "user id is required")
	}
	if err := s.users.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// AdminListUsers returns one page of sanitized users matching the query.
func (s *UserService) AdminListUsers(ctx context.Context, query ListUsersQuery) (UserPage, error) {
	if query.SortField != "" {
		if _, ok := allowedSortFields[query.SortField]; !ok {
			return UserPage{}, fieldError("sortField", "enum", "unsupported sort field")
		}
	}
	if query.Role != "" && !query.Role.Valid() {
		return UserPage{}, fieldError("userRole", "enum", "unknown role value")
	}
	if query.Status != "" && !query.Status.Valid() {
		return UserPage{}, fieldError("userStatus", "enum", "unknown status value")
	}
	if query.Gender != nil {
		if g := *query.Gender; g != domain.GenderUnknown && g != domain.GenderMale && g != domain.GenderFemale {
			return UserPage{}, fieldError("userGender", "enum", "unknown gender value")
		}
	}

	page := domain.Page{Current: query.Current, Size: query.Size}
	if page.Current < 1 {
		page.Current = 1
	}
	if page.Size < 1 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}

	filter := domain.UserFilter{
		ID:              query.ID,
		Account:         query.Account,
		Name:            query.Name,
		Profile:         query.Profile,
		Role:            query.Role,
		Gender:          query.Gender,
		Phone:           query.Phone,
		Email:           query.Email,
		Status:          query.Status,
		PlanetCode:      query.PlanetCode,
		CreatedAtStart:  query.CreatedAtStart,
		CreatedAtEnd:    query.CreatedAtEnd,
		SortField:       query.SortField,
		SortAscending:   query.SortAscending,
		SortFieldWasSet: query.SortField != "",
	}

	users, total, err := s.users.List(ctx, filter, page)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}

	principals := make([]domain.Principal, 0, len(users))
	for _, u := range users {
		principals = append(principals, u.Sanitize())
	}
	return UserPage{
		Users:   principals,
		Total:   total,
		Current: page.Current,
		Size:    page.Size,
	}, nil
}

// AdminResetPassword replaces a user's credential with an admin-chosen one.
// Existing sessions for the target are not revoked.
func (s *UserService) AdminResetPassword(ctx context.Context, id int64, newPassword string) error {
	if id <= 0 {
		return fieldError("id", "required", "user id is required")
	}
	if err := validatePasswordBand("newPassword", newPassword); err != nil {
		return err
	}
	if err := validatePasswordStrength("newPassword", newPassword); err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	hash, err := security.HashPasswordWithCost(newPassword, s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    id,
			ChangedAt: time.Now().UTC(),
			ChangedBy: "admin",
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("failed to publish password changed event",
				zap.Int64("user_id", id),
				zap.Error(err))
		}
	}
	return nil
}

// AdminSetUserStatus bans or unbans an account. A transition to the status
// the account already holds is rejected.
func (s *UserService) AdminSetUserStatus(ctx context.Context, actorID, id int64, status domain.UserStatus) error {
	if id <= 0 {
		return fieldError("id", "required", "user id is required")
	}
	if !status.Valid() {
		return fieldError("userStatus", "enum", "unknown status value")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.Status == status {
		return fmt.Errorf("%w: user already %s", ErrOperationFailed, status)
	}

	if err := s.users.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update status: %w", err)
	}

	if s.events != nil {
		event := domain.UserStatusChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    id,
			OldStatus: user.Status,
			NewStatus: status,
			ChangedAt: time.Now().UTC(),
			ChangedBy: actorID,
		}
		if err := s.events.PublishUserStatusChanged(ctx, event); err != nil {
			s.logger.Warn("failed to publish user status changed event",
				zap.Int64("user_id", id),
				zap.Error(err))
		}
	}
	return nil
}

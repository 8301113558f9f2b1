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

// uniquenessMessage deliberately does not reveal which field collided so
// registration cannot be used to enumerate existing accounts.
const uniquenessMessage = "account or planet code already exists"

// RegisterInput carries a self-service registration request.
type RegisterInput struct {
	Account       string
	Password      string
	CheckPassword string
	PlanetCode    string
}

// RegistrationService validates and persists new accounts.
type RegistrationService struct {
	users    port.UserRepository
	events   port.EventPublisher
	logger   *zap.Logger
	hashCost int
}

func NewRegistrationService(users port.UserRepository, events port.EventPublisher, logger *zap.Logger, hashCost int) *RegistrationService {
	return &RegistrationService{
		users:    users,
		events:   events,
		logger:   logger,
		hashCost: hashCost,
	}
}

// Register runs the full validation pipeline and inserts the account,
// returning its assigned id. Validation fails fast; no partial writes.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (int64, error) {
	if input.Account == "" || input.Password == "" || input.CheckPassword == "" || input.PlanetCode == "" {
		return 0, fieldError("", "required", "all registration fields are required")
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

	// Best-effort pre-check; the unique indexes remain the authority under
	// concurrent registration.
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

	now := time.Now().UTC()
	user := domain.User{
		Account:      input.Account,
		PasswordHash: hash,
		PlanetCode:   input.PlanetCode,
		Name:         input.Account,
		AvatarURL:    domain.DefaultAvatarURL,
		Profile:      domain.DefaultProfile,
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Race loser: a concurrent registration claimed the account or
			// planet code after the pre-check passed.
			return 0, fieldError("userAccount", "unique", uniquenessMessage)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	s.publishRegistered(ctx, id, input.Account, input.PlanetCode, "self")

	return id, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, id int64, account, planetCode, method string) {
	if s.events == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       id,
		Account:      account,
		PlanetCode:   planetCode,
		RegisteredAt: time.Now().UTC(),
		Method:       method,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("failed to publish user registered event",
			zap.Int64("user_id", id),
			zap.Error(err))
	}
}

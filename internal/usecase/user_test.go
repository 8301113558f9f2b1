package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/infra/security"
)

func newUserService(users *mockUserRepository, events *mockEventPublisher) *UserService {
	return NewUserService(users, events, zap.NewNop(), security.MinCost)
}

func TestUserService_UpdateProfile(t *testing.T) {
	actor := &domain.User{ID: 7, Role: domain.RoleUser}
	name := "Cloud"

	t.Run("self edit succeeds", func(t *testing.T) {
		users := &mockUserRepository{}
		service := newUserService(users, nil)

		err := service.UpdateProfile(context.Background(), actor, UpdateProfileInput{UserID: 7, Name: &name})
		if err != nil {
			t.Fatalf("UpdateProfile returned error: %v", err)
		}
		if users.updateCalls != 1 {
			t.Fatalf("expected one update, got %d", users.updateCalls)
		}
		if users.lastUpdate.ID != 7 || users.lastUpdate.Name == nil || *users.lastUpdate.Name != "Cloud" {
			t.Fatalf("unexpected update payload: %+v", users.lastUpdate)
		}
		if users.lastUpdate.Role != nil {
			t.Fatalf("self edit must never carry a role change")
		}
	})

	t.Run("cross-account edit denied", func(t *testing.T) {
		users := &mockUserRepository{}
		service := newUserService(users, nil)

		err := service.UpdateProfile(context.Background(), actor, UpdateProfileInput{UserID: 8, Name: &name})
		if !errors.Is(err, ErrNoPermission) {
			t.Fatalf("expected ErrNoPermission, got %v", err)
		}
		if users.updateCalls != 0 {
			t.Fatalf("store must be untouched")
		}
	})

	t.Run("unknown gender rejected", func(t *testing.T) {
		bad := domain.Gender(9)
		service := newUserService(&mockUserRepository{}, nil)

		err := service.UpdateProfile(context.Background(), actor, UpdateProfileInput{UserID: 7, Gender: &bad})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestUserService_AdminCreateUser(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		users := &mockUserRepository{createID: 11}
		events := &mockEventPublisher{}
		service := newUserService(users, events)

		id, err := service.AdminCreateUser(context.Background(), AdminCreateUserInput{
			Account:       "newcomer",
			Password:      "Password..1234",
			CheckPassword: "Password..1234",
			PlanetCode:    "00042",
		})
		if err != nil {
			t.Fatalf("AdminCreateUser returned error: %v", err)
		}
		if id != 11 {
			t.Fatalf("expected id 11, got %d", id)
		}
		if users.createdUser.Role != domain.RoleUser {
			t.Fatalf("expected default role, got %s", users.createdUser.Role)
		}
		if users.createdUser.Name != "newcomer" {
			t.Fatalf("expected name to default to the account, got %q", users.createdUser.Name)
		}
		if events.registeredCalls != 1 || events.registeredEvent.Method != "admin" {
			t.Fatalf("unexpected event: %+v", events.registeredEvent)
		}
	})

	t.Run("same uniqueness message as self registration", func(t *testing.T) {
		users := &mockUserRepository{existsResult: true}
		service := newUserService(users, nil)

		_, err := service.AdminCreateUser(context.Background(), AdminCreateUserInput{
			Account:       "newcomer",
			Password:      "Password..1234",
			CheckPassword: "Password..1234",
			PlanetCode:    "00042",
		})
		if !errors.Is(err, ErrInvalidInput) || err.Error() != uniquenessMessage {
			t.Fatalf("expected generic uniqueness failure, got %v", err)
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		service := newUserService(&mockUserRepository{}, nil)

		_, err := service.AdminCreateUser(context.Background(), AdminCreateUserInput{
			Account:       "newcomer",
			Password:      "12345678",
			CheckPassword: "12345678",
			PlanetCode:    "00042",
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("confirmation mismatch rejected", func(t *testing.T) {
		users := &mockUserRepository{}
		service := newUserService(users, nil)

		_, err := service.AdminCreateUser(context.Background(), AdminCreateUserInput{
			Account:       "newcomer",
			Password:      "Password..1234",
			CheckPassword: "Password..5678",
			PlanetCode:    "00042",
		})
		if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "do not match") {
			t.Fatalf("expected confirmation mismatch failure, got %v", err)
		}
		if users.existsCalls != 0 || users.createCalls != 0 {
			t.Fatalf("store must be untouched")
		}
	})

	t.Run("missing confirmation rejected", func(t *testing.T) {
		service := newUserService(&mockUserRepository{}, nil)

		_, err := service.AdminCreateUser(context.Background(), AdminCreateUserInput{
			Account:    "newcomer",
			Password:   "Password..1234",
			PlanetCode: "00042",
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestUserService_AdminGetUser(t *testing.T) {
	t.Run("returns sanitized view", func(t *testing.T) {
		user := &domain.User{ID: 7, Account: "LingYun", PasswordHash: "$2a$10$secret"}
		users := &mockUserRepository{getByIDResult: user}
		service := newUserService(users, nil)

		principal, err := service.AdminGetUser(context.Background(), 7)
		if err != nil {
			t.Fatalf("AdminGetUser returned error: %v", err)
		}
		if principal.ID != 7 || principal.Account != "LingYun" {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		service := newUserService(&mockUserRepository{}, nil)
		if _, err := service.AdminGetUser(context.Background(), 404); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserService_AdminListUsers(t *testing.T) {
	t.Run("pagination defaults and cap", func(t *testing.T) {
		users := &mockUserRepository{listResult: []domain.User{{ID: 1}}, listTotal: 1}
		service := newUserService(users, nil)

		if _, err := service.AdminListUsers(context.Background(), ListUsersQuery{}); err != nil {
			t.Fatalf("AdminListUsers returned error: %v", err)
		}
		if users.lastPage.Current != 1 || users.lastPage.Size != defaultPageSize {
			t.Fatalf("expected defaults, got %+v", users.lastPage)
		}

		if _, err := service.AdminListUsers(context.Background(), ListUsersQuery{Size: 500}); err != nil {
			t.Fatalf("AdminListUsers returned error: %v", err)
		}
		if users.lastPage.Size != maxPageSize {
			t.Fatalf("expected size capped at %d, got %d", maxPageSize, users.lastPage.Size)
		}
	})

	t.Run("unsupported sort field rejected", func(t *testing.T) {
		users := &mockUserRepository{}
		service := newUserService(users, nil)

		_, err := service.AdminListUsers(context.Background(), ListUsersQuery{SortField: "userPassword"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if users.listCalls != 0 {
			t.Fatalf("store must be untouched")
		}
	})

	t.Run("contact filters reach the store", func(t *testing.T) {
		users := &mockUserRepository{listResult: []domain.User{}, listTotal: 0}
		service := newUserService(users, nil)

		gender := domain.GenderFemale
		_, err := service.AdminListUsers(context.Background(), ListUsersQuery{
			ID:     7,
			Gender: &gender,
			Phone:  "13812345678",
			Email:  "lingyun@example.com",
		})
		if err != nil {
			t.Fatalf("AdminListUsers returned error: %v", err)
		}
		if users.lastFilter.ID != 7 {
			t.Fatalf("expected id filter 7, got %d", users.lastFilter.ID)
		}
		if users.lastFilter.Gender == nil || *users.lastFilter.Gender != domain.GenderFemale {
			t.Fatalf("expected gender filter to be forwarded, got %v", users.lastFilter.Gender)
		}
		if users.lastFilter.Phone != "13812345678" || users.lastFilter.Email != "lingyun@example.com" {
			t.Fatalf("expected contact filters to be forwarded, got %+v", users.lastFilter)
		}
	})

	t.Run("unknown gender filter rejected", func(t *testing.T) {
		users := &mockUserRepository{}
		service := newUserService(users, nil)

		bad := domain.Gender(9)
		_, err := service.AdminListUsers(context.Background(), ListUsersQuery{Gender: &bad})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if users.listCalls != 0 {
			t.Fatalf("store must be untouched")
		}
	})

	t.Run("results are sanitized", func(t *testing.T) {
		users := &mockUserRepository{
			listResult: []domain.User{{ID: 1, Account: "a_user", PasswordHash: "$2a$10$secret"}},
			listTotal:  1,
		}
		service := newUserService(users, nil)

		page, err := service.AdminListUsers(context.Background(), ListUsersQuery{SortField: "createTime"})
		if err != nil {
			t.Fatalf("AdminListUsers returned error: %v", err)
		}
		if page.Total != 1 || len(page.Users) != 1 {
			t.Fatalf("unexpected page: %+v", page)
		}
		if page.Users[0].Account != "a_user" {
			t.Fatalf("unexpected principal: %+v", page.Users[0])
		}
		if !users.lastFilter.SortFieldWasSet {
			t.Fatalf("expected sort field to be forwarded")
		}
	})
}

func TestUserService_AdminResetPassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		users := &mockUserRepository{getByIDResult: &domain.User{ID: 7}}
		events := &mockEventPublisher{}
		service := newUserService(users, events)

		if err := service.AdminResetPassword(context.Background(), 7, "Reset!Pass99"); err != nil {
			t.Fatalf("AdminResetPassword returned error: %v", err)
		}
		if !security.VerifyPassword("Reset!Pass99", users.updatePasswordHash) {
			t.Fatalf("stored hash does not verify the new password")
		}
		if events.passwordCalls != 1 || events.passwordEvent.ChangedBy != "admin" {
			t.Fatalf("unexpected event: %+v", events.passwordEvent)
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		users := &mockUserRepository{getByIDResult: &domain.User{ID: 7}}
		service := newUserService(users, nil)

		err := service.AdminResetPassword(context.Background(), 7, "weakpassword")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if users.updatePasswordCalls != 0 {
			t.Fatalf("stored hash must be unchanged")
		}
	})

	t.Run("missing user", func(t *testing.T) {
		service := newUserService(&mockUserRepository{}, nil)
		if err := service.AdminResetPassword(context.Background(), 404, "Reset!Pass99"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserService_AdminSetUserStatus(t *testing.T) {
	t.Run("ban publishes transition", func(t *testing.T) {
		users := &mockUserRepository{getByIDResult: &domain.User{ID: 7, Status: domain.UserStatusActive}}
		events := &mockEventPublisher{}
		service := newUserService(users, events)

		if err := service.AdminSetUserStatus(context.Background(), 1, 7, domain.UserStatusBanned); err != nil {
			t.Fatalf("AdminSetUserStatus returned error: %v", err)
		}
		if users.updateStatusCalls != 1 || users.updateStatusValue != domain.UserStatusBanned {
			t.Fatalf("unexpected status update: %+v", users)
		}
		if events.statusCalls != 1 {
			t.Fatalf("expected one status event, got %d", events.statusCalls)
		}
		if events.statusEvent.OldStatus != domain.UserStatusActive || events.statusEvent.NewStatus != domain.UserStatusBanned {
			t.Fatalf("unexpected transition: %+v", events.statusEvent)
		}
		if events.statusEvent.ChangedBy != 1 {
			t.Fatalf("expected acting admin id 1, got %d", events.statusEvent.ChangedBy)
		}
	})

	t.Run("redundant transition rejected", func(t *testing.T) {
		users := &mockUserRepository{getByIDResult: &domain.User{ID: 7, Status: domain.UserStatusBanned}}
		service := newUserService(users, nil)

		err := service.AdminSetUserStatus(context.Background(), 1, 7, domain.UserStatusBanned)
		if !errors.Is(err, ErrOperationFailed) {
			t.Fatalf("expected ErrOperationFailed, got %v", err)
		}
		if users.updateStatusCalls != 0 {
			t.Fatalf("store must be untouched")
		}
	})
}

func TestUserService_AdminDeleteUser(t *testing.T) {
	t.Run("tombstones the row", func(t *testing.T) {
		users := &mockUserRepository{}
		service := newUserService(users, nil)

		if err := service.AdminDeleteUser(context.Background(), 7); err != nil {
			t.Fatalf("AdminDeleteUser returned error: %v", err)
		}
		if users.softDeleteCalls != 1 || users.softDeleteID != 7 {
			t.Fatalf("expected one soft delete of user 7")
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		service := newUserService(&mockUserRepository{}, nil)
		if err := service.AdminDeleteUser(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

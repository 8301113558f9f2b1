package usecase

import (
	"context"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/repository"
)

type mockUserRepository struct {
	createID    int64
	createErr   error
	createCalls int
	createdUser domain.User

	getByIDResult *domain.User
	getByIDErr    error
	getByIDCalls  int
	getByIDLastID int64

	getByAccountResult *domain.User
	getByAccountErr    error
	getByAccountCalls  int
	getByAccountLast   string

	existsResult bool
	existsErr    error
	existsCalls  int

	updateErr   error
	updateCalls int
	lastUpdate  domain.UserUpdate

	updatePasswordErr   error
	updatePasswordCalls int
	updatePasswordID    int64
	updatePasswordHash  string

	updateStatusErr   error
	updateStatusCalls int
	updateStatusID    int64
	updateStatusValue domain.UserStatus

	softDeleteErr   error
	softDeleteCalls int
	softDeleteID    int64

	listResult []domain.User
	listTotal  int64
	listErr    error
	listCalls  int
	lastFilter domain.UserFilter
	lastPage   domain.Page
}

func (m *mockUserRepository) Create(_ context.Context, user domain.User) (int64, error) {
	m.createCalls++
	m.createdUser = user
	if m.createErr != nil {
		return 0, m.createErr
	}
	return m.createID, nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.getByIDCalls++
	m.getByIDLastID = id
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	if m.getByIDResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.getByIDResult
	return &copy, nil
}

func (m *mockUserRepository) GetByAccount(_ context.Context, account string) (*domain.User, error) {
	m.getByAccountCalls++
	m.getByAccountLast = account
	if m.getByAccountErr != nil {
		return nil, m.getByAccountErr
	}
	if m.getByAccountResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.getByAccountResult
	return &copy, nil
}

func (m *mockUserRepository) ExistsByAccountOrPlanetCode(context.Context, string, string) (bool, error) {
	m.existsCalls++
	return m.existsResult, m.existsErr
}

func (m *mockUserRepository) Update(_ context.Context, update domain.UserUpdate) error {
	m.updateCalls++
	m.lastUpdate = update
	return m.updateErr
}

func (m *mockUserRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.updatePasswordCalls++
	m.updatePasswordID = id
	m.updatePasswordHash = hash
	return m.updatePasswordErr
}

func (m *mockUserRepository) UpdateStatus(_ context.Context, id int64, status domain.UserStatus) error {
	m.updateStatusCalls++
	m.updateStatusID = id
	m.updateStatusValue = status
	return m.updateStatusErr
}

func (m *mockUserRepository) SoftDelete(_ context.Context, id int64) error {
	m.softDeleteCalls++
	m.softDeleteID = id
	return m.softDeleteErr
}

func (m *mockUserRepository) List(_ context.Context, filter domain.UserFilter, page domain.Page) ([]domain.User, int64, error) {
	m.listCalls++
	m.lastFilter = filter
	m.lastPage = page
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := make([]domain.User, len(m.listResult))
	copy(out, m.listResult)
	return out, m.listTotal, nil
}

type mockSessionStore struct {
	principal *domain.Principal
	getErr    error
	getCalls  int

	setErr         error
	setCalls       int
	lastSet        domain.Principal
	lastSetSession string

	removeErr      error
	removeCalls    int
	removedSession string
}

func (m *mockSessionStore) Get(context.Context, string) (*domain.Principal, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.principal == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.principal
	return &copy, nil
}

func (m *mockSessionStore) Set(_ context.Context, sessionID string, principal domain.Principal) error {
	m.setCalls++
	m.lastSetSession = sessionID
	m.lastSet = principal
	return m.setErr
}

func (m *mockSessionStore) Remove(_ context.Context, sessionID string) error {
	m.removeCalls++
	m.removedSession = sessionID
	return m.removeErr
}

type mockEventPublisher struct {
	registeredCalls int
	registeredEvent domain.UserRegisteredEvent
	registeredErr   error

	passwordCalls int
	passwordEvent domain.PasswordChangedEvent
	passwordErr   error

	statusCalls int
	statusEvent domain.UserStatusChangedEvent
	statusErr   error
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registeredCalls++
	m.registeredEvent = event
	return m.registeredErr
}

func (m *mockEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.passwordCalls++
	m.passwordEvent = event
	return m.passwordErr
}

func (m *mockEventPublisher) PublishUserStatusChanged(_ context.Context, event domain.UserStatusChangedEvent) error {
	m.statusCalls++
	m.statusEvent = event
	return m.statusErr
}

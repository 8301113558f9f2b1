package port

import (
	"context"

	"github.com/mlinyun/user-center/internal/core/domain"
)

// UserRepository exposes persistence behavior for users. Every lookup and
// mutation is implicitly scoped to non-deleted records; soft-deleted rows
// are invisible through this interface.
type UserRepository interface {
	// Create inserts a new user row and returns the assigned identifier.
	Create(ctx context.Context, user domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByAccount(ctx context.Context, account string) (*domain.User, error)
	// ExistsByAccountOrPlanetCode reports whether either field is already
	// taken. This pre-check is best effort; the table's unique indexes are
	// the authority under concurrent registration.
	ExistsByAccountOrPlanetCode(ctx context.Context, account, planetCode string) (bool, error)
	Update(ctx context.Context, update domain.UserUpdate) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.UserFilter, page domain.Page) ([]domain.User, int64, error)
}

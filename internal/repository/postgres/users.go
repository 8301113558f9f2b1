package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var userColumns = []string{
	"id",
	"user_account",
	"user_password",
	"planet_code",
	"user_name",
	"user_avatar",
	"user_profile",
	"user_gender",
	"user_phone",
	"user_email",
	"user_role",
	"user_status",
	"create_time",
	"update_time",
	"is_delete",
}

// UserRepository implements port.UserRepository using PostgreSQL.
// Every query predicate carries is_delete = FALSE; soft-deleted rows are
// invisible through this type.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository. Any executor
// satisfying pgExecutor works, including pgxmock in tests.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row and returns the assigned identifier.
// A unique-index violation on user_account or planet_code surfaces as
// repository.ErrDuplicate; this is the authority for registration races.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (int64, error) {
	stmt, args, err := r.builder.Insert("users").
		Columns(
			"user_account",
			"user_password",
			"planet_code",
			"user_name",
			"user_avatar",
			"user_profile",
			"user_gender",
			"user_phone",
			"user_email",
			"user_role",
			"user_status",
		).
		Values(
			user.Account,
			user.PasswordHash,
			user.PlanetCode,
			user.Name,
			user.AvatarURL,
			user.Profile,
			user.Gender,
			user.Phone,
			user.Email,
			user.Role,
			user.Status,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert user sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

// GetByID retrieves a non-deleted user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByAccount retrieves a non-deleted user by login handle.
func (r *UserRepository) GetByAccount(ctx context.Context, account string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"user_account": account})
}

func (r *UserRepository) getOne(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		Where(squirrel.Eq{"is_delete": false}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

// ExistsByAccountOrPlanetCode reports whether either field is taken by a
// non-deleted record.
func (r *UserRepository) ExistsByAccountOrPlanetCode(ctx context.Context, account, planetCode string) (bool, error) {
	stmt, args, err := r.builder.
		Select("COUNT(1)").
		From("users").
		Where(squirrel.Or{
			squirrel.Eq{"user_account": account},
			squirrel.Eq{"planet_code": planetCode},
		}).
		Where(squirrel.Eq{"is_delete": false}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build count users sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}

	return count > 0, nil
}

// Update applies the non-nil fields of the partial update.
func (r *UserRepository) Update(ctx context.Context, update domain.UserUpdate) error {
	query := r.builder.Update("users").
		Set("update_time", squirrel.Expr("NOW()"))

	if update.Name != nil {
		query = query.Set("user_name", *update.Name)
	}
	if update.AvatarURL != nil {
		query = query.Set("user_avatar", *update.AvatarURL)
	}
	if update.Profile != nil {
		query = query.Set("user_profile", *update.Profile)
	}
	if update.Gender != nil {
		query = query.Set("user_gender", *update.Gender)
	}
	if update.Phone != nil {
		query = query.Set("user_phone", *update.Phone)
	}
	if update.Email != nil {
		query = query.Set("user_email", *update.Email)
	}
	if update.Role != nil {
		query = query.Set("user_role", *update.Role)
	}

	stmt, args, err := query.
		Where(squirrel.Eq{"id": update.ID, "is_delete": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	stmt, args, err := r.builder.Update("users").
		Set("user_password", passwordHash).
		Set("update_time", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "is_delete": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateStatus transitions the account status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error {
	stmt, args, err := r.builder.Update("users").
		Set("user_status", status).
		Set("update_time", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "is_delete": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update status sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SoftDelete flags the record as deleted; the row is never physically removed.
func (r *UserRepository) SoftDelete(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Update("users").
		Set("is_delete", true).
		Set("update_time", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "is_delete": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// sortColumns whitelists fields accepted for ORDER BY to keep user-supplied
// sort fields out of the SQL text.
var sortColumns = map[string]string{
	"id":          "id",
	"userAccount": "user_account",
	"userName":    "user_name",
	"userPhone":   "user_phone",
	"userEmail":   "user_email",
	"planetCode":  "planet_code",
	"createTime":  "create_time",
}

// SortableField reports whether the field may be used for ordering.
func SortableField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// List returns a page of non-deleted users matching the filter plus the
// total match count.
func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter, page domain.Page) ([]domain.User, int64, error) {
	where := r.listPredicates(filter)

	countStmt, countArgs, err := r.builder.
		Select("COUNT(1)").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count sql: %w", err)
	}

	var total int64
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := r.builder.
		Select(userColumns...).
		From("users").
		Where(where)

	orderColumn := "create_time"
	direction := "DESC"
	if filter.SortFieldWasSet {
		if col, ok := sortColumns[filter.SortField]; ok {
			orderColumn = col
			if filter.SortAscending {
				direction = "ASC"
			}
		}
	}
	query = query.OrderBy(fmt.Sprintf("%s %s", orderColumn, direction))

	if page.Size > 0 {
		query = query.Limit(uint64(page.Size))
		if page.Current > 1 {
			query = query.Offset(uint64((page.Current - 1) * page.Size))
		}
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, total, nil
}

func (r *UserRepository) listPredicates(filter domain.UserFilter) squirrel.And {
	where := squirrel.And{squirrel.Eq{"is_delete": false}}

	if filter.ID > 0 {
		where = append(where, squirrel.Eq{"id": filter.ID})
	}
	if filter.Account != "" {
		where = append(where, squirrel.Eq{"user_account": filter.Account})
	}
	if filter.Role != "" {
		where = append(where, squirrel.Eq{"user_role": filter.Role})
	}
	if filter.Gender != nil {
		where = append(where, squirrel.Eq{"user_gender": *filter.Gender})
	}
	if filter.Phone != "" {
		where = append(where, squirrel.Eq{"user_phone": filter.Phone})
	}
	if filter.Email != "" {
		where = append(where, squirrel.Eq{"user_email": filter.Email})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"user_status": filter.Status})
	}
	if filter.PlanetCode != "" {
		where = append(where, squirrel.Eq{"planet_code": filter.PlanetCode})
	}
	if filter.Name != "" {
		where = append(where, squirrel.Like{"user_name": "%" + filter.Name + "%"})
	}
	if filter.Profile != "" {
		where = append(where, squirrel.Like{"user_profile": "%" + filter.Profile + "%"})
	}
	if filter.CreatedAtStart != nil {
		where = append(where, squirrel.GtOrEq{"create_time": *filter.CreatedAtStart})
	}
	if filter.CreatedAtEnd != nil {
		where = append(where, squirrel.LtOrEq{"create_time": *filter.CreatedAtEnd})
	}

	return where
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user  domain.User
		phone sql.NullString
		email sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.Account,
		&user.PasswordHash,
		&user.PlanetCode,
		&user.Name,
		&user.AvatarURL,
		&user.Profile,
		&user.Gender,
		&phone,
		&email,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Deleted,
	); err != nil {
		return nil, err
	}

	if phone.Valid {
		val := phone.String
		user.Phone = &val
	}
	if email.Valid {
		val := email.String
		user.Email = &val
	}

	return &user, nil
}

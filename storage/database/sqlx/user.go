package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/user"
)

var userColumns = []string{
	"id", "identification_type", "identification_number", "first_name", "last_name", "email",
	"role", "school_id", "is_active", "password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID                   string      `db:"id"`
	IdentificationType   string      `db:"identification_type"`
	IdentificationNumber string      `db:"identification_number"`
	FirstName            string      `db:"first_name"`
	LastName             string      `db:"last_name"`
	Email                null.String `db:"email"`
	Role                 string      `db:"role"`
	SchoolID             null.String `db:"school_id"`
	IsActive             bool        `db:"is_active"`
	PasswordHash         []byte      `db:"password_hash"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
	LastLogin            null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:                   usr.ID,
		IdentificationType:   usr.IdentificationType,
		IdentificationNumber: usr.IdentificationNumber,
		FirstName:            usr.FirstName,
		LastName:             usr.LastName,
		Email:                nullString(usr.Email),
		Role:                 usr.Role,
		SchoolID:             usr.SchoolID,
		IsActive:             usr.IsActive,
		PasswordHash:         usr.PasswordHash,
		CreatedAt:            usr.CreatedAt.UTC(),
		UpdatedAt:            usr.UpdatedAt.UTC(),
		LastLogin:            null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:                   r.ID,
		IdentificationType:   r.IdentificationType,
		IdentificationNumber: r.IdentificationNumber,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Email:                r.Email.String,
		Role:                 r.Role,
		SchoolID:             r.SchoolID,
		IsActive:             r.IsActive,
		PasswordHash:         r.PasswordHash,
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
		LastLogin:            r.LastLogin.Time.UTC(),
	}
}

func (r userRow) values() []interface{} {
	return []interface{}{
		r.ID, r.IdentificationType, r.IdentificationNumber, r.FirstName, r.LastName, r.Email,
		r.Role, r.SchoolID, r.IsActive, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	}
}

type userRepository struct {
	conn
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{newConn(db)}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, identificationNumber, email string, excludedIDs ...string) error {
	cond := sq.Or{sq.Eq{"identification_number": identificationNumber}}
	if email != "" {
		cond = append(cond, sq.Eq{"email": email})
	}
	b := psql.Select("identification_number").From("users").Where(cond).Limit(1)
	if len(excludedIDs) > 0 {
		b = b.Where(sq.NotEq{"id": excludedIDs})
	}

	var found string
	err := repo.get(ctx, &found, b)
	switch {
	case err == nil && found == identificationNumber:
		return user.ErrIdentificationExists
	case err == nil:
		return user.ErrEmailExists
	}
	return storeErr(err, "checking user uniqueness", nil, nil)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	row := toUserRow(usr)
	b := psql.Insert("users").Columns(userColumns...).Values(row.values()...)
	if _, err := repo.exec(ctx, b); err != nil {
		return user.User{}, storeErr(err, "inserting user", nil, user.ErrIdentificationExists)
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	b := psql.Select(userColumns...).From("users")
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			b = b.Where("(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR identification_number LIKE ?)", val, val, val, val)
		}
		if len(filter.Roles) > 0 {
			b = b.Where(sq.Eq{"role": filter.Roles})
		}
		if filter.SchoolID != "" {
			b = b.Where(sq.Eq{"school_id": filter.SchoolID})
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
	}
	if len(ordering) == 0 {
		ordering = core.OrderBy("-created_at")
	}
	b = orderBy(b, ordering, userColumns...)

	var rows []userRow
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "querying users", nil, nil)
	}
	return usersFromRows(rows), nil
}

func usersFromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := psql.Select(userColumns...).From("users").Limit(1)
	switch {
	case filter.ID != "":
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.IdentificationNumber != "":
		b = b.Where(sq.Eq{"identification_number": filter.IdentificationNumber})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.get(ctx, &row, b); err != nil {
		return user.User{}, storeErr(err, "getting user", user.ErrNotFound, nil)
	}
	return row.user(), nil
}

func (repo *userRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	var rows []userRow
	b := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": ids})
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "getting users", nil, nil)
	}
	return usersFromRows(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	b := psql.Update("users").
		SetMap(map[string]interface{}{
			"first_name":    row.FirstName,
			"last_name":     row.LastName,
			"email":         row.Email,
			"role":          row.Role,
			"school_id":     row.SchoolID,
			"is_active":     row.IsActive,
			"password_hash": row.PasswordHash,
			"updated_at":    row.UpdatedAt,
			"last_login":    row.LastLogin,
		}).
		Where(sq.Eq{"id": row.ID})

	n, err := repo.exec(ctx, b)
	if err != nil {
		return user.User{}, storeErr(err, "updating user", nil, user.ErrEmailExists)
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.user(), nil
}

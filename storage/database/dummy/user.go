package dummydb

import (
	"context"
	"strings"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/user"
)

type userRepository struct {
	session
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{session{db: db}}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, identificationNumber, email string, excludedIDs ...string) error {
	defer repo.rlock()()

	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, usr := range repo.db.t.users {
		if excluded[usr.ID] {
			continue
		}
		if usr.IdentificationNumber == identificationNumber {
			return user.ErrIdentificationExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	defer repo.lock()()

	for _, u := range repo.db.t.users {
		if u.IdentificationNumber == usr.IdentificationNumber {
			return user.User{}, user.ErrIdentificationExists
		}
	}
	id, err := repo.insert("users")
	if err != nil {
		return user.User{}, err
	}
	usr.ID = id
	repo.db.t.users[id] = usr
	return usr, nil
}

func userField(usr user.User, name string) interface{} {
	switch name {
	case "first_name":
		return usr.FirstName
	case "last_name":
		return usr.LastName
	case "identification_number":
		return usr.IdentificationNumber
	case "email":
		return usr.Email
	case "role":
		return usr.Role
	case "is_active":
		return usr.IsActive
	case "created_at":
		return usr.CreatedAt
	case "last_login":
		return usr.LastLogin
	}
	return nil
}

func (repo *userRepository) matches(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(usr.FirstName), search) ||
			strings.Contains(strings.ToLower(usr.LastName), search) ||
			strings.Contains(strings.ToLower(usr.Email), search) ||
			strings.Contains(usr.IdentificationNumber, search)) {
			return false
		}
	}
	if len(filter.Roles) > 0 && !usr.HasAnyRole(filter.Roles...) {
		return false
	}
	if filter.SchoolID != "" && usr.SchoolID.String != filter.SchoolID {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	defer repo.rlock()()

	ids := make([]string, 0, len(repo.db.t.users))
	for id, usr := range repo.db.t.users {
		if repo.matches(usr, filter) {
			ids = append(ids, id)
		}
	}
	if len(ordering) == 0 {
		ordering = core.OrderBy("-created_at")
	}
	repo.sortBy(ids, ordering, func(id, name string) interface{} { return userField(repo.db.t.users[id], name) })

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, repo.db.t.users[id])
	}
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	defer repo.rlock()()

	if filter.ID != "" {
		if usr, ok := repo.db.t.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.t.users {
		if filter.IdentificationNumber != "" && usr.IdentificationNumber == filter.IdentificationNumber {
			return usr, nil
		}
		if filter.IdentificationNumber == "" && filter.Email != "" && usr.Email == filter.Email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByIDs(_ context.Context, ids []string) ([]user.User, error) {
	defer repo.rlock()()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.t.users[id]; ok {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	defer repo.lock()()

	if _, ok := repo.db.t.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

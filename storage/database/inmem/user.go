package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.users {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.New().String()
	usr.Children = nil
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) matches(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.FullName), search) && !strings.Contains(strings.ToLower(usr.Email), search) {
			return false
		}
	}
	if len(filter.Roles) > 0 && !contains(filter.Roles, usr.Role) {
		return false
	}
	if filter.GroupID != "" && usr.PrimaryGroup != filter.GroupID && !repo.hasChildInGroup(usr.ID, filter.GroupID) {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) hasChildInGroup(userID, groupID string) bool {
	for _, c := range repo.db.children {
		if c.UserID == userID && c.GroupID == groupID {
			return true
		}
	}
	return false
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if repo.matches(usr, filter) {
			users = append(users, usr)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "full_name", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := userSortKey(users[i], ord.Field), userSortKey(users[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func userSortKey(usr user.User, field string) string {
	switch field {
	case "email":
		return usr.Email
	case "role":
		return usr.Role
	case "created_at":
		return usr.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000")
	case "last_login":
		return usr.LastLogin.UTC().Format("2006-01-02T15:04:05.000000000")
	default:
		return strings.ToLower(usr.FullName)
	}
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.users {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.CreatedAt = orig.CreatedAt
	usr.FacilityID = orig.FacilityID
	stored := usr
	stored.Children = nil
	repo.db.users[usr.ID] = stored
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.users[id]; ok {
			delete(repo.db.users, id)
			cnt++
		}
	}
	for id, c := range repo.db.children {
		if contains(ids, c.UserID) {
			delete(repo.db.children, id)
		}
	}
	return cnt, nil
}

func (repo *userRepository) CreateChildren(_ context.Context, children []user.Child, _ ...core.DBExecutor) ([]user.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]user.Child, 0, len(children))
	for _, c := range children {
		c.ID = uuid.New().String()
		repo.db.children[c.ID] = c
		created = append(created, c)
	}
	return created, nil
}

func (repo *userRepository) GetChild(_ context.Context, id string, _ ...core.DBExecutor) (user.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.children[id]; ok {
		return c, nil
	}
	return user.Child{}, user.ErrChildNotFound
}

func childMatches(c user.Child, filter user.ChildFilter) bool {
	if filter.IDs != nil && !contains(filter.IDs, c.ID) {
		return false
	}
	if filter.UserIDs != nil && !contains(filter.UserIDs, c.UserID) {
		return false
	}
	if filter.GroupIDs != nil && !contains(filter.GroupIDs, c.GroupID) {
		return false
	}
	return true
}

func (repo *userRepository) QueryChildren(_ context.Context, filter user.ChildFilter, _ ...core.DBExecutor) ([]user.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	children := make([]user.Child, 0)
	for _, c := range repo.db.children {
		if childMatches(c, filter) {
			children = append(children, c)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].FirstName == children[j].FirstName {
			return children[i].ID < children[j].ID
		}
		return children[i].FirstName < children[j].FirstName
	})
	return children, nil
}

func (repo *userRepository) UpdateChild(_ context.Context, child user.Child, _ ...core.DBExecutor) (user.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.children[child.ID]; !ok {
		return user.Child{}, user.ErrChildNotFound
	}
	repo.db.children[child.ID] = child
	return child, nil
}

func (repo *userRepository) DeleteChildren(_ context.Context, filter user.ChildFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if filter.IDs == nil && filter.UserIDs == nil && filter.GroupIDs == nil {
		return 0, nil
	}
	cnt := 0
	for id, c := range repo.db.children {
		if childMatches(c, filter) {
			delete(repo.db.children, id)
			cnt++
		}
	}
	return cnt, nil
}

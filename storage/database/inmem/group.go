package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) QueryGroups(_ context.Context, facilityID string, _ ...core.DBExecutor) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]group.Group, 0)
	for _, g := range repo.db.groups {
		if g.FacilityID == facilityID {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *groupRepository) GetGroup(_ context.Context, id string, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) CreateGroup(_ context.Context, grp group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grp.ID = uuid.New().String()
	repo.db.groups[grp.ID] = grp
	return grp, nil
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.groups[grp.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	grp.FacilityID = orig.FacilityID
	grp.IsEventGroup = orig.IsEventGroup
	repo.db.groups[grp.ID] = grp
	return grp, nil
}

// DeleteGroup detaches the group's children and staff and drops its lists.
func (repo *groupRepository) DeleteGroup(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return group.ErrNotFound
	}
	delete(repo.db.groups, id)

	for cid, c := range repo.db.children {
		if c.GroupID == id {
			c.GroupID = ""
			repo.db.children[cid] = c
		}
	}
	for uid, u := range repo.db.users {
		if u.PrimaryGroup == id {
			u.PrimaryGroup = ""
			repo.db.users[uid] = u
		}
	}
	for lid, l := range repo.db.lists {
		if l.GroupID == id {
			delete(repo.db.lists, lid)
		}
	}
	return nil
}

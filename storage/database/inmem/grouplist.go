package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/grouplist"
)

type groupListRepository struct {
	db *DB
}

var _ grouplist.Repository = (*groupListRepository)(nil) // interface compliance check

func NewGroupListRepository(db *DB) *groupListRepository {
	return &groupListRepository{db: db}
}

func copyItems(items []grouplist.Item) []grouplist.Item {
	cp := make([]grouplist.Item, len(items))
	for i, it := range items {
		if it.Votes != nil {
			it.Votes = append([]string(nil), it.Votes...)
		}
		cp[i] = it
	}
	return cp
}

func (repo *groupListRepository) CreateList(_ context.Context, l grouplist.List, _ ...core.DBExecutor) (grouplist.List, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l.ID = uuid.New().String()
	l.Items = copyItems(l.Items)
	repo.db.lists[l.ID] = l
	return l, nil
}

// GetList ignores forUpdate, units of work are serialized by the Transactor.
func (repo *groupListRepository) GetList(_ context.Context, id string, _ bool, _ ...core.DBExecutor) (grouplist.List, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	l, ok := repo.db.lists[id]
	if !ok {
		return grouplist.List{}, grouplist.ErrNotFound
	}
	l.Items = copyItems(l.Items)
	return l, nil
}

func (repo *groupListRepository) QueryLists(_ context.Context, groupID string, _ ...core.DBExecutor) ([]grouplist.List, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lists := make([]grouplist.List, 0)
	for _, l := range repo.db.lists {
		if l.GroupID == groupID {
			l.Items = copyItems(l.Items)
			lists = append(lists, l)
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].CreatedAt.After(lists[j].CreatedAt) })
	return lists, nil
}

func (repo *groupListRepository) UpdateListItems(_ context.Context, id string, items []grouplist.Item, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l, ok := repo.db.lists[id]
	if !ok {
		return grouplist.ErrNotFound
	}
	l.Items = copyItems(items)
	repo.db.lists[id] = l
	return nil
}

func (repo *groupListRepository) DeleteList(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lists[id]; !ok {
		return grouplist.ErrNotFound
	}
	delete(repo.db.lists, id)
	return nil
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/news"
)

type newsRepository struct {
	db *DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *DB) *newsRepository {
	return &newsRepository{db: db}
}

func (repo *newsRepository) CreateNews(_ context.Context, n news.News, _ ...core.DBExecutor) (news.News, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = uuid.New().String()
	if n.Attachments == nil {
		n.Attachments = []news.Attachment{}
	}
	repo.db.news[n.ID] = n
	return n, nil
}

func (repo *newsRepository) GetNews(_ context.Context, id string, _ ...core.DBExecutor) (news.News, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.news[id]; ok {
		return n, nil
	}
	return news.News{}, news.ErrNotFound
}

func (repo *newsRepository) QueryNews(_ context.Context, facilityID string, _ ...core.DBExecutor) ([]news.News, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]news.News, 0)
	for _, n := range repo.db.news {
		if n.FacilityID == facilityID {
			items = append(items, n)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (repo *newsRepository) DeleteNews(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.news[id]; !ok {
		return news.ErrNotFound
	}
	delete(repo.db.news, id)
	for _, hidden := range repo.db.hiddenNews {
		delete(hidden, id)
	}
	return nil
}

func (repo *newsRepository) HideNews(_ context.Context, newsID, userID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.hiddenNews[userID] == nil {
		repo.db.hiddenNews[userID] = make(map[string]bool)
	}
	repo.db.hiddenNews[userID][newsID] = true
	return nil
}

func (repo *newsRepository) QueryHiddenNewsIDs(_ context.Context, userID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0, len(repo.db.hiddenNews[userID]))
	for id := range repo.db.hiddenNews[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

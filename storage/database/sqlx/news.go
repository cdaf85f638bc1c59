package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/news"
)

const newsColumns = "id, facility_id, title, text, group_id, target, attachments, created_by, created_at"

type newsRow struct {
	ID          string      `db:"id"`
	FacilityID  string      `db:"facility_id"`
	Title       string      `db:"title"`
	Text        string      `db:"text"`
	GroupID     null.String `db:"group_id"`
	Target      string      `db:"target"`
	Attachments null.JSON   `db:"attachments"`
	CreatedBy   string      `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (row newsRow) news() (news.News, error) {
	n := news.News{
		ID:          row.ID,
		FacilityID:  row.FacilityID,
		Title:       row.Title,
		Text:        row.Text,
		GroupID:     row.GroupID.Ptr(),
		Target:      row.Target,
		Attachments: []news.Attachment{},
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
	}
	if row.Attachments.Valid {
		if err := json.Unmarshal(row.Attachments.JSON, &n.Attachments); err != nil {
			return news.News{}, errors.Wrap(err, "decoding attachments")
		}
	}
	return n, nil
}

type newsRepository struct {
	repository
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(exec core.DBExecutor) *newsRepository {
	return &newsRepository{repository{exec: exec}}
}

func (repo newsRepository) CreateNews(ctx context.Context, n news.News, exec ...core.DBExecutor) (news.News, error) {
	n.ID = uuid.New().String()
	if n.Attachments == nil {
		n.Attachments = []news.Attachment{}
	}
	attachments, err := json.Marshal(n.Attachments)
	if err != nil {
		return news.News{}, errors.Wrap(err, "encoding attachments")
	}

	query := "INSERT INTO news (" + newsColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	if _, err = repo.getExec(exec).ExecContext(ctx, query,
		n.ID, n.FacilityID, n.Title, n.Text, null.StringFromPtr(n.GroupID), n.Target, null.JSONFrom(attachments), n.CreatedBy, n.CreatedAt.UTC(),
	); err != nil {
		return news.News{}, errors.Wrap(err, "inserting news")
	}
	return n, nil
}

func (repo newsRepository) GetNews(ctx context.Context, id string, exec ...core.DBExecutor) (news.News, error) {
	if !validID(id) {
		return news.News{}, news.ErrNotFound
	}
	var row newsRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+newsColumns+" FROM news WHERE id = $1", id); err != nil {
		return news.News{}, trapNoRowsErr(err, news.ErrNotFound, "finding news")
	}
	return row.news()
}

func (repo newsRepository) QueryNews(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]news.News, error) {
	items := make([]news.News, 0)
	if !validID(facilityID) {
		return items, nil
	}
	var rows []newsRow
	query := "SELECT " + newsColumns + " FROM news WHERE facility_id = $1 ORDER BY created_at DESC"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, facilityID); err != nil {
		return nil, errors.Wrap(err, "querying news")
	}
	for _, r := range rows {
		n, err := r.news()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (repo newsRepository) DeleteNews(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return news.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM news WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting news")
	}
	return checkAffected(res, news.ErrNotFound, "deleting news")
}

func (repo newsRepository) HideNews(ctx context.Context, newsID, userID string, exec ...core.DBExecutor) error {
	query := "INSERT INTO news_hidden (news_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	_, err := repo.getExec(exec).ExecContext(ctx, query, newsID, userID)
	return errors.Wrap(err, "hiding news")
}

func (repo newsRepository) QueryHiddenNewsIDs(ctx context.Context, userID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	if !validID(userID) {
		return ids, nil
	}
	if err := repo.getExec(exec).SelectContext(ctx, &ids, "SELECT news_id FROM news_hidden WHERE user_id = $1", userID); err != nil {
		return nil, errors.Wrap(err, "querying hidden news")
	}
	return ids, nil
}

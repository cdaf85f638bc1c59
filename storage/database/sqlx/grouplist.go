package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/grouplist"
)

const listColumns = "id, facility_id, group_id, title, type, items, created_by, created_at"

type listRow struct {
	ID         string    `db:"id"`
	FacilityID string    `db:"facility_id"`
	GroupID    string    `db:"group_id"`
	Title      string    `db:"title"`
	Type       string    `db:"type"`
	Items      null.JSON `db:"items"`
	CreatedBy  string    `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row listRow) list() (grouplist.List, error) {
	l := grouplist.List{
		ID:         row.ID,
		FacilityID: row.FacilityID,
		GroupID:    row.GroupID,
		Title:      row.Title,
		Type:       row.Type,
		Items:      []grouplist.Item{},
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
	}
	if row.Items.Valid {
		if err := json.Unmarshal(row.Items.JSON, &l.Items); err != nil {
			return grouplist.List{}, errors.Wrap(err, "decoding list items")
		}
	}
	return l, nil
}

func encodeItems(items []grouplist.Item) (null.JSON, error) {
	if items == nil {
		items = []grouplist.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return null.JSON{}, errors.Wrap(err, "encoding list items")
	}
	return null.JSONFrom(b), nil
}

type groupListRepository struct {
	repository
}

var _ grouplist.Repository = (*groupListRepository)(nil) // interface compliance check

func NewGroupListRepository(exec core.DBExecutor) *groupListRepository {
	return &groupListRepository{repository{exec: exec}}
}

func (repo groupListRepository) CreateList(ctx context.Context, l grouplist.List, exec ...core.DBExecutor) (grouplist.List, error) {
	l.ID = uuid.New().String()
	items, err := encodeItems(l.Items)
	if err != nil {
		return grouplist.List{}, err
	}
	query := "INSERT INTO group_lists (" + listColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	if _, err = repo.getExec(exec).ExecContext(ctx, query,
		l.ID, l.FacilityID, l.GroupID, l.Title, l.Type, items, l.CreatedBy, l.CreatedAt.UTC(),
	); err != nil {
		return grouplist.List{}, errors.Wrap(err, "inserting list")
	}
	return l, nil
}

func (repo groupListRepository) GetList(ctx context.Context, id string, forUpdate bool, exec ...core.DBExecutor) (grouplist.List, error) {
	if !validID(id) {
		return grouplist.List{}, grouplist.ErrNotFound
	}
	query := "SELECT " + listColumns + " FROM group_lists WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var row listRow
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return grouplist.List{}, trapNoRowsErr(err, grouplist.ErrNotFound, "finding list")
	}
	return row.list()
}

func (repo groupListRepository) QueryLists(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]grouplist.List, error) {
	lists := make([]grouplist.List, 0)
	if !validID(groupID) {
		return lists, nil
	}
	var rows []listRow
	query := "SELECT " + listColumns + " FROM group_lists WHERE group_id = $1 ORDER BY created_at DESC"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, groupID); err != nil {
		return nil, errors.Wrap(err, "querying lists")
	}
	for _, r := range rows {
		l, err := r.list()
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, nil
}

func (repo groupListRepository) UpdateListItems(ctx context.Context, id string, items []grouplist.Item, exec ...core.DBExecutor) error {
	j, err := encodeItems(items)
	if err != nil {
		return err
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE group_lists SET items = $2 WHERE id = $1", id, j)
	if err != nil {
		return errors.Wrap(err, "updating list items")
	}
	return checkAffected(res, grouplist.ErrNotFound, "updating list items")
}

func (repo groupListRepository) DeleteList(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return grouplist.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM group_lists WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting list")
	}
	return checkAffected(res, grouplist.ErrNotFound, "deleting list")
}

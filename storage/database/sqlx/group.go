package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/group"
)

const groupColumns = "id, facility_id, name, color, icon, position, is_event_group"

type groupRow struct {
	ID           string   `db:"id"`
	FacilityID   string   `db:"facility_id"`
	Name         string   `db:"name"`
	Color        string   `db:"color"`
	Icon         string   `db:"icon"`
	Position     null.Int `db:"position"`
	IsEventGroup bool     `db:"is_event_group"`
}

func (row groupRow) group() group.Group {
	grp := group.Group{
		ID:           row.ID,
		FacilityID:   row.FacilityID,
		Name:         row.Name,
		Color:        row.Color,
		Icon:         row.Icon,
		IsEventGroup: row.IsEventGroup,
	}
	if row.Position.Valid {
		pos := row.Position.Int
		grp.Position = &pos
	}
	return grp
}

type groupRepository struct {
	repository
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(exec core.DBExecutor) *groupRepository {
	return &groupRepository{repository{exec: exec}}
}

func (repo groupRepository) QueryGroups(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]group.Group, error) {
	groups := make([]group.Group, 0)
	if !validID(facilityID) {
		return groups, nil
	}
	var rows []groupRow
	query := "SELECT " + groupColumns + " FROM groups WHERE facility_id = $1 ORDER BY position ASC NULLS LAST, name ASC"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, facilityID); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	for _, r := range rows {
		groups = append(groups, r.group())
	}
	return groups, nil
}

func (repo groupRepository) GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (group.Group, error) {
	if !validID(id) {
		return group.Group{}, group.ErrNotFound
	}
	var row groupRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+groupColumns+" FROM groups WHERE id = $1", id); err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "finding group")
	}
	return row.group(), nil
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	grp.ID = uuid.New().String()
	query := "INSERT INTO groups (" + groupColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7)"
	if _, err := repo.getExec(exec).ExecContext(ctx, query,
		grp.ID, grp.FacilityID, grp.Name, grp.Color, grp.Icon, null.IntFromPtr(grp.Position), grp.IsEventGroup,
	); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	query := "UPDATE groups SET name = $2, color = $3, icon = $4, position = $5 WHERE id = $1"
	res, err := repo.getExec(exec).ExecContext(ctx, query, grp.ID, grp.Name, grp.Color, grp.Icon, null.IntFromPtr(grp.Position))
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if err = checkAffected(res, group.ErrNotFound, "updating group"); err != nil {
		return group.Group{}, err
	}
	return grp, nil
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return group.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM groups WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return checkAffected(res, group.ErrNotFound, "deleting group")
}

package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/absence"
)

const (
	absenceColumns = "id, facility_id, child_id, child_name, group_id, type, date_from, date_to, reason, other_text, status, created_by, created_at, updated_at"
	absenceSelect  = `id, facility_id, child_id, child_name, group_id, type,
		to_char(date_from, 'YYYY-MM-DD') AS date_from, to_char(date_to, 'YYYY-MM-DD') AS date_to,
		reason, other_text, status, created_by, created_at, updated_at`
)

type absenceRow struct {
	ID         string      `db:"id"`
	FacilityID string      `db:"facility_id"`
	ChildID    string      `db:"child_id"`
	ChildName  string      `db:"child_name"`
	GroupID    null.String `db:"group_id"`
	Type       string      `db:"type"`
	DateFrom   string      `db:"date_from"`
	DateTo     string      `db:"date_to"`
	Reason     string      `db:"reason"`
	OtherText  string      `db:"other_text"`
	Status     string      `db:"status"`
	CreatedBy  string      `db:"created_by"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (row absenceRow) absence() absence.Absence {
	return absence.Absence{
		ID:         row.ID,
		FacilityID: row.FacilityID,
		ChildID:    row.ChildID,
		ChildName:  row.ChildName,
		GroupID:    row.GroupID.String,
		Type:       row.Type,
		DateFrom:   row.DateFrom,
		DateTo:     row.DateTo,
		Reason:     row.Reason,
		OtherText:  row.OtherText,
		Status:     row.Status,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

type absenceRepository struct {
	repository
}

var _ absence.Repository = (*absenceRepository)(nil) // interface compliance check

func NewAbsenceRepository(exec core.DBExecutor) *absenceRepository {
	return &absenceRepository{repository{exec: exec}}
}

func (repo absenceRepository) CreateAbsence(ctx context.Context, a absence.Absence, exec ...core.DBExecutor) (absence.Absence, error) {
	a.ID = uuid.New().String()
	query := "INSERT INTO absences (" + absenceColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)"
	if _, err := repo.getExec(exec).ExecContext(ctx, query,
		a.ID, a.FacilityID, a.ChildID, a.ChildName, null.NewString(a.GroupID, a.GroupID != ""), a.Type,
		a.DateFrom, a.DateTo, a.Reason, a.OtherText, a.Status, a.CreatedBy, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	); err != nil {
		return absence.Absence{}, errors.Wrap(err, "inserting absence")
	}
	return a, nil
}

func (repo absenceRepository) GetAbsence(ctx context.Context, id string, exec ...core.DBExecutor) (absence.Absence, error) {
	if !validID(id) {
		return absence.Absence{}, absence.ErrNotFound
	}
	var row absenceRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+absenceSelect+" FROM absences WHERE id = $1", id); err != nil {
		return absence.Absence{}, trapNoRowsErr(err, absence.ErrNotFound, "finding absence")
	}
	return row.absence(), nil
}

func (repo absenceRepository) QueryAbsences(ctx context.Context, facilityID string, filter absence.Filter, exec ...core.DBExecutor) ([]absence.Absence, error) {
	absences := make([]absence.Absence, 0)
	if !validID(facilityID) {
		return absences, nil
	}
	query := "SELECT " + absenceSelect + " FROM absences WHERE facility_id = $1"
	args := []interface{}{facilityID}
	if filter.ChildID != "" {
		if !validID(filter.ChildID) {
			return absences, nil
		}
		args = append(args, filter.ChildID)
		query += fmt.Sprintf(" AND child_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var rows []absenceRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying absences")
	}
	for _, r := range rows {
		absences = append(absences, r.absence())
	}
	return absences, nil
}

func (repo absenceRepository) UpdateAbsence(ctx context.Context, a absence.Absence, exec ...core.DBExecutor) (absence.Absence, error) {
	query := `UPDATE absences SET type = $2, date_from = $3, date_to = $4, reason = $5, other_text = $6, status = $7, updated_at = $8
		WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		a.ID, a.Type, a.DateFrom, a.DateTo, a.Reason, a.OtherText, a.Status, a.UpdatedAt.UTC())
	if err != nil {
		return absence.Absence{}, errors.Wrap(err, "updating absence")
	}
	if err = checkAffected(res, absence.ErrNotFound, "updating absence"); err != nil {
		return absence.Absence{}, err
	}
	return a, nil
}

func (repo absenceRepository) DeleteAbsence(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return absence.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM absences WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting absence")
	}
	return checkAffected(res, absence.ErrNotFound, "deleting absence")
}

func (repo absenceRepository) QueryReadStatuses(ctx context.Context, userID string, exec ...core.DBExecutor) ([]absence.ReadStatus, error) {
	statuses := make([]absence.ReadStatus, 0)
	query := "SELECT absence_id, user_id, status, hidden, updated_at FROM absence_read_status"
	var args []interface{}
	if userID != "" {
		if !validID(userID) {
			return statuses, nil
		}
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}

	rows, err := repo.getExec(exec).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying read statuses")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rs absence.ReadStatus
		if err = rows.Scan(&rs.AbsenceID, &rs.UserID, &rs.Status, &rs.Hidden, &rs.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning read status")
		}
		statuses = append(statuses, rs)
	}
	return statuses, errors.Wrap(rows.Err(), "querying read statuses")
}

func (repo absenceRepository) UpsertReadStatus(ctx context.Context, rs absence.ReadStatus, exec ...core.DBExecutor) error {
	query := `INSERT INTO absence_read_status (absence_id, user_id, status, hidden, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (absence_id, user_id) DO UPDATE SET
			status = EXCLUDED.status, hidden = EXCLUDED.hidden, updated_at = EXCLUDED.updated_at`
	_, err := repo.getExec(exec).ExecContext(ctx, query, rs.AbsenceID, rs.UserID, rs.Status, rs.Hidden, rs.UpdatedAt.UTC())
	return errors.Wrap(err, "upserting read status")
}

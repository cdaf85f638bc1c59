package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

const (
	userColumns  = "id, email, full_name, role, primary_group, facility_id, must_reset_password, is_active, password_hash, created_at, updated_at, last_login"
	childColumns = "id, first_name, birthday, notes, group_id, user_id, facility_id, created_at"
	// dates are read back as text to stay clear of time zone conversions
	childSelect = "id, first_name, to_char(birthday, 'YYYY-MM-DD') AS birthday, notes, group_id, user_id, facility_id, created_at"
)

// orderable user columns
var userOrderFields = map[string]bool{
	"email": true, "full_name": true, "role": true, "created_at": true, "last_login": true,
}

type userRow struct {
	ID                string      `db:"id"`
	Email             string      `db:"email"`
	FullName          string      `db:"full_name"`
	Role              string      `db:"role"`
	PrimaryGroup      null.String `db:"primary_group"`
	FacilityID        string      `db:"facility_id"`
	MustResetPassword bool        `db:"must_reset_password"`
	IsActive          bool        `db:"is_active"`
	PasswordHash      []byte      `db:"password_hash"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
	LastLogin         null.Time   `db:"last_login"`
}

type childRow struct {
	ID         string      `db:"id"`
	FirstName  string      `db:"first_name"`
	Birthday   null.String `db:"birthday"`
	Notes      string      `db:"notes"`
	GroupID    null.String `db:"group_id"`
	UserID     string      `db:"user_id"`
	FacilityID string      `db:"facility_id"`
	CreatedAt  time.Time   `db:"created_at"`
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:                usr.ID,
		Email:             usr.Email,
		FullName:          usr.FullName,
		Role:              usr.Role,
		PrimaryGroup:      null.NewString(usr.PrimaryGroup, usr.PrimaryGroup != ""),
		FacilityID:        usr.FacilityID,
		MustResetPassword: usr.MustResetPassword,
		IsActive:          usr.IsActive,
		PasswordHash:      usr.PasswordHash,
		CreatedAt:         usr.CreatedAt.UTC(),
		UpdatedAt:         usr.UpdatedAt.UTC(),
		LastLogin:         null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:                row.ID,
		Email:             row.Email,
		FullName:          row.FullName,
		Role:              row.Role,
		PrimaryGroup:      row.PrimaryGroup.String,
		FacilityID:        row.FacilityID,
		MustResetPassword: row.MustResetPassword,
		IsActive:          row.IsActive,
		PasswordHash:      row.PasswordHash,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		LastLogin:         row.LastLogin.Time,
	}
}

func (repo userRepository) childToRow(c user.Child) childRow {
	return childRow{
		ID:         c.ID,
		FirstName:  c.FirstName,
		Birthday:   null.NewString(c.Birthday, c.Birthday != ""),
		Notes:      c.Notes,
		GroupID:    null.NewString(c.GroupID, c.GroupID != ""),
		UserID:     c.UserID,
		FacilityID: c.FacilityID,
		CreatedAt:  c.CreatedAt.UTC(),
	}
}

func (repo userRepository) childFromRow(row childRow) user.Child {
	return user.Child{
		ID:         row.ID,
		FirstName:  row.FirstName,
		Birthday:   row.Birthday.String,
		Notes:      row.Notes,
		GroupID:    row.GroupID.String,
		UserID:     row.UserID,
		FacilityID: row.FacilityID,
		CreatedAt:  row.CreatedAt,
	}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := "SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1 AND NOT (id = ANY($2)))"
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var exists bool
	if err := repo.getExec(exec).GetContext(ctx, &exists, query, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	query := `INSERT INTO profiles (` + userColumns + `)
		VALUES (:id, :email, :full_name, :role, :primary_group, :facility_id, :must_reset_password, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, repo.toRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// users with FullName or Email matching the search keyword
		if filter.Search != "" {
			val := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(full_name ILIKE %s OR email ILIKE %s)", val, val))
		}
		if len(filter.Roles) > 0 {
			conds = append(conds, "role = ANY("+arg(pq.Array(filter.Roles))+")")
		}
		// staff of the group or parents with a child in it
		if filter.GroupID != "" {
			if !validID(filter.GroupID) {
				return []user.User{}, nil
			}
			val := arg(filter.GroupID)
			conds = append(conds, fmt.Sprintf(
				"(primary_group = %s OR id IN (SELECT user_id FROM children WHERE group_id = %s))", val, val))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
	}

	query := "SELECT " + userColumns + " FROM profiles"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if userOrderFields[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "full_name ASC")
	}
	query += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []userRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.fromRow(r))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		row   userRow
		query string
		arg   string
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		query, arg = "SELECT "+userColumns+" FROM profiles WHERE id = $1", filter.ID
	case filter.Email != "":
		query, arg = "SELECT "+userColumns+" FROM profiles WHERE email = $1", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	if err := repo.getExec(exec).GetContext(ctx, &row, query, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	query := `UPDATE profiles SET email = :email, full_name = :full_name, role = :role, primary_group = :primary_group,
		must_reset_password = :must_reset_password, is_active = :is_active, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, repo.toRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM profiles WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}

func (repo userRepository) CreateChildren(ctx context.Context, children []user.Child, exec ...core.DBExecutor) ([]user.Child, error) {
	query := `INSERT INTO children (` + childColumns + `)
		VALUES (:id, :first_name, :birthday, :notes, :group_id, :user_id, :facility_id, :created_at)`
	exe := repo.getExec(exec)
	created := make([]user.Child, 0, len(children))
	for _, c := range children {
		c.ID = uuid.New().String()
		if _, err := sqlx.NamedExecContext(ctx, exe, query, repo.childToRow(c)); err != nil {
			return nil, errors.Wrap(err, "inserting child")
		}
		created = append(created, c)
	}
	return created, nil
}

func (repo userRepository) GetChild(ctx context.Context, id string, exec ...core.DBExecutor) (user.Child, error) {
	if !validID(id) {
		return user.Child{}, user.ErrChildNotFound
	}
	var row childRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+childSelect+" FROM children WHERE id = $1", id)
	if err != nil {
		return user.Child{}, trapNoRowsErr(err, user.ErrChildNotFound, "finding child")
	}
	return repo.childFromRow(row), nil
}

func (repo userRepository) childConditions(filter user.ChildFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(col string, vals []string) {
		if vals != nil {
			args = append(args, pq.Array(vals))
			conds = append(conds, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
		}
	}
	add("id", filter.IDs)
	add("user_id", filter.UserIDs)
	add("group_id", filter.GroupIDs)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (repo userRepository) QueryChildren(ctx context.Context, filter user.ChildFilter, exec ...core.DBExecutor) ([]user.Child, error) {
	where, args := repo.childConditions(filter)
	query := "SELECT " + childSelect + " FROM children" + where + " ORDER BY first_name ASC"

	var rows []childRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	children := make([]user.Child, 0, len(rows))
	for _, r := range rows {
		children = append(children, repo.childFromRow(r))
	}
	return children, nil
}

func (repo userRepository) UpdateChild(ctx context.Context, child user.Child, exec ...core.DBExecutor) (user.Child, error) {
	query := `UPDATE children SET first_name = :first_name, birthday = :birthday, notes = :notes, group_id = :group_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, repo.childToRow(child))
	if err != nil {
		return user.Child{}, errors.Wrap(err, "updating child")
	}
	if err = checkAffected(res, user.ErrChildNotFound, "updating child"); err != nil {
		return user.Child{}, err
	}
	return child, nil
}

func (repo userRepository) DeleteChildren(ctx context.Context, filter user.ChildFilter, exec ...core.DBExecutor) (int, error) {
	where, args := repo.childConditions(filter)
	if where == "" {
		return 0, nil // never wipe the whole table
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM children"+where, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting children")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting children")
	}
	return int(cnt), nil
}

package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kita/core"
)

// Roles
const (
	RoleParent = "parent"
	RoleTeam   = "team"
	RoleAdmin  = "admin"
)

var (
	AllRoles   = []string{RoleParent, RoleTeam, RoleAdmin}
	StaffRoles = []string{RoleTeam, RoleAdmin}

	Roles = []Role{
		{Name: "Eltern", Value: RoleParent},
		{Name: "Team", Value: RoleTeam},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	Role              string    `json:"role"`
	PrimaryGroup      string    `json:"primary_group"`
	FacilityID        string    `json:"facility_id"`
	MustResetPassword bool      `json:"must_reset_password"`
	IsActive          bool      `json:"is_active"`
	PasswordHash      []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
	LastLogin         time.Time `json:"last_login"` // UTC
	Children          []Child   `json:"children,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsTeam() bool   { return u.Role == RoleTeam }
func (u *User) IsParent() bool { return u.Role == RoleParent }

// IsStaff reports whether the user belongs to the facility team (team or admin).
func (u *User) IsStaff() bool { return u.IsTeam() || u.IsAdmin() }

// DisplayName is the name shown next to things the user signed up for: their first child's name, or their own.
func (u *User) DisplayName() string {
	if len(u.Children) > 0 && u.Children[0].FirstName != "" {
		return u.Children[0].FirstName
	}
	return u.FullName
}

// ChildGroupIDs returns the distinct group IDs of the user's children.
func (u *User) ChildGroupIDs() []string {
	seen := make(map[string]bool, len(u.Children))
	ids := make([]string, 0, len(u.Children))
	for _, c := range u.Children {
		if c.GroupID != "" && !seen[c.GroupID] {
			seen[c.GroupID] = true
			ids = append(ids, c.GroupID)
		}
	}
	return ids
}

// HasChildInGroup reports whether one of the user's children belongs to groupID.
func (u *User) HasChildInGroup(groupID string) bool {
	for _, c := range u.Children {
		if c.GroupID == groupID {
			return true
		}
	}
	return false
}

type Child struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	Birthday   string    `json:"birthday"` // YYYY-MM-DD or empty
	Notes      string    `json:"notes"`
	GroupID    string    `json:"group_id"`
	UserID     string    `json:"user_id"`
	FacilityID string    `json:"facility_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasBirthdayOn reports whether the child's birthday falls on the day and month of t.
func (c Child) HasBirthdayOn(t time.Time) bool {
	if c.Birthday == "" {
		return false
	}
	bday, err := core.ParseDate(c.Birthday)
	if err != nil {
		return false
	}
	return bday.Month() == t.Month() && bday.Day() == t.Day()
}

// NewChild contains information needed to register a Child.
type NewChild struct {
	FirstName string `json:"first_name" validate:"required"`
	GroupID   string `json:"group_id" validate:"required"`
	Birthday  string `json:"birthday" validate:"omitempty,isodate"`
	Notes     string `json:"notes"`
}

func (nc *NewChild) clean() {
	nc.FirstName = core.CleanString(nc.FirstName)
	nc.GroupID = core.CleanString(nc.GroupID)
	nc.Birthday = core.CleanString(nc.Birthday)
	nc.Notes = core.CleanString(nc.Notes)
}

func (nc *NewChild) Validate(ctx context.Context, validate *validator.Validate, groups GroupDirectory) error {
	nc.clean()
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return checkGroup(ctx, groups, nc.GroupID, "group_id")
}

// UpdateChild defines what information may be provided to modify an existing Child.
type UpdateChild struct {
	FirstName string  `json:"first_name"`
	GroupID   string  `json:"group_id"`
	Birthday  *string `json:"birthday" validate:"omitempty,isodate"`
	Notes     *string `json:"notes"`
}

func (uc *UpdateChild) Validate(ctx context.Context, validate *validator.Validate, groups GroupDirectory) error {
	uc.FirstName = core.CleanString(uc.FirstName)
	uc.GroupID = core.CleanString(uc.GroupID)
	if uc.Birthday != nil {
		bday := core.CleanString(*uc.Birthday)
		uc.Birthday = &bday
	}
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.GroupID != "" {
		return checkGroup(ctx, groups, uc.GroupID, "group_id")
	}
	return nil
}

// Registration is the self sign-up form. The code must match the registration code of the chosen role.
type Registration struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Name     string     `json:"name" validate:"required"`
	Role     string     `json:"role" validate:"required,oneof=parent team admin"`
	Code     string     `json:"code" validate:"required"`
	Children []NewChild `json:"children" validate:"dive"`
}

func (r *Registration) Validate(ctx context.Context, validate *validator.Validate, groups GroupDirectory) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Name = core.CleanString(r.Name)
	r.Role = core.CleanString(r.Role, true /* lower */)
	r.Code = core.CleanString(r.Code)
	for i := range r.Children {
		r.Children[i].clean()
	}

	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Role != RoleParent {
		r.Children = nil
		return nil
	}
	if len(r.Children) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "children", Error: errNoChildren})
	}
	for _, c := range r.Children {
		if err := checkGroup(ctx, groups, c.GroupID, "children"); err != nil {
			return err
		}
	}
	return nil
}

// NewUser contains information needed by an admin to create a User.
type NewUser struct {
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"full_name" validate:"required"`
	Role         string `json:"role" validate:"required,oneof=parent team admin"`
	PrimaryGroup string `json:"primary_group"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, groups GroupDirectory) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.PrimaryGroup = core.CleanString(nu.PrimaryGroup)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if nu.PrimaryGroup != "" {
		return checkGroup(ctx, groups, nu.PrimaryGroup, "primary_group")
	}
	return nil
}

// UpdateUser defines what information an admin may provide to modify an existing User.
type UpdateUser struct {
	FullName     string  `json:"full_name"`
	Role         string  `json:"role" validate:"omitempty,oneof=parent team admin"`
	PrimaryGroup *string `json:"primary_group"`
	IsActive     *bool   `json:"is_active"`
}

func (uu *UpdateUser) Validate(ctx context.Context, validate *validator.Validate, groups GroupDirectory) error {
	uu.FullName = core.CleanString(uu.FullName)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	if uu.PrimaryGroup != nil {
		grp := core.CleanString(*uu.PrimaryGroup)
		uu.PrimaryGroup = &grp
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.PrimaryGroup != nil && *uu.PrimaryGroup != "" {
		return checkGroup(ctx, groups, *uu.PrimaryGroup, "primary_group")
	}
	return nil
}

// UpdateProfile defines what information a User may change about themselves.
type UpdateProfile struct {
	FullName     string  `json:"full_name"`
	PrimaryGroup *string `json:"primary_group"`
}

func (up *UpdateProfile) Validate(ctx context.Context, validate *validator.Validate, groups GroupDirectory) error {
	up.FullName = core.CleanString(up.FullName)
	if up.PrimaryGroup != nil {
		grp := core.CleanString(*up.PrimaryGroup)
		up.PrimaryGroup = &grp
	}
	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.PrimaryGroup != nil && *up.PrimaryGroup != "" {
		return checkGroup(ctx, groups, *up.PrimaryGroup, "primary_group")
	}
	return nil
}

type ChangePassword struct {
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

// ForceResetPassword is submitted by users who must replace a temporary password.
// The new password goes through the full password policy.
type ForceResetPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	name  string
	email string
}

func (fr *ForceResetPassword) Validate(validate *validator.Validate, usr User) error {
	fr.name = usr.FullName
	fr.email = usr.Email
	return validate.Struct(fr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	GroupID  string   `query:"group"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.GroupID == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.GroupID = core.CleanString(qf.GroupID)
}

type ChildFilter struct {
	IDs      []string
	UserIDs  []string
	GroupIDs []string
}

func checkGroup(ctx context.Context, groups GroupDirectory, groupID, field string) error {
	if groups == nil {
		return nil
	}
	ok, err := groups.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: errUnknownGroup})
	}
	return nil
}

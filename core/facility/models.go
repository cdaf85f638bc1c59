package facility

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

const (
	DefaultName = "Meine Einrichtung"

	DefaultParentCode = "PARENT-2024"
	DefaultTeamCode   = "TEAM-2024"
	DefaultAdminCode  = "ADMIN-2024"
)

type Facility struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	LogoURL      string `json:"logo_url"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	OpeningHours string `json:"opening_hours"`
	InfoText     string `json:"info_text"`
}

// withDefaults fills the names left empty.
func (f Facility) withDefaults() Facility {
	if f.Name == "" {
		f.Name = DefaultName
	}
	if f.DisplayName == "" {
		f.DisplayName = f.Name
	}
	return f
}

// UpdateFacility defines what information may be provided to modify the Facility.
// Nil fields are left unchanged.
type UpdateFacility struct {
	Name         *string `json:"name"`
	DisplayName  *string `json:"display_name"`
	LogoURL      *string `json:"logo_url" validate:"omitempty,url"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email" validate:"omitempty,email"`
	OpeningHours *string `json:"opening_hours"`
	InfoText     *string `json:"info_text"`
}

func (uf *UpdateFacility) Validate(_ context.Context, validate *validator.Validate) error {
	for _, fld := range []*string{uf.Name, uf.DisplayName, uf.LogoURL, uf.Address, uf.Phone, uf.Email, uf.OpeningHours} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	return validate.Struct(uf)
}

func (uf UpdateFacility) apply(f Facility) Facility {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&f.Name, uf.Name)
	set(&f.DisplayName, uf.DisplayName)
	set(&f.LogoURL, uf.LogoURL)
	set(&f.Address, uf.Address)
	set(&f.Phone, uf.Phone)
	set(&f.Email, uf.Email)
	set(&f.OpeningHours, uf.OpeningHours)
	set(&f.InfoText, uf.InfoText)
	return f
}

// RegistrationCode is the code a User must provide to sign up with Role.
type RegistrationCode struct {
	FacilityID string `json:"facility_id"`
	Role       string `json:"role"`
	Code       string `json:"code"`
}

// Codes holds one registration code per role.
type Codes struct {
	Parent string `json:"parent" validate:"required"`
	Team   string `json:"team" validate:"required"`
	Admin  string `json:"admin" validate:"required"`
}

// DefaultCodes are used for every role without a stored code.
func DefaultCodes() Codes {
	return Codes{Parent: DefaultParentCode, Team: DefaultTeamCode, Admin: DefaultAdminCode}
}

func (c *Codes) Validate(validate *validator.Validate) error {
	c.Parent = core.CleanString(c.Parent)
	c.Team = core.CleanString(c.Team)
	c.Admin = core.CleanString(c.Admin)
	return validate.Struct(c)
}

// ForRole returns the code of role, "" for unknown roles.
func (c Codes) ForRole(role string) string {
	switch role {
	case user.RoleParent:
		return c.Parent
	case user.RoleTeam:
		return c.Team
	case user.RoleAdmin:
		return c.Admin
	}
	return ""
}

func (c *Codes) set(role, code string) {
	switch role {
	case user.RoleParent:
		c.Parent = code
	case user.RoleTeam:
		c.Team = code
	case user.RoleAdmin:
		c.Admin = code
	}
}

func (c Codes) rows(facilityID string) []RegistrationCode {
	return []RegistrationCode{
		{FacilityID: facilityID, Role: user.RoleParent, Code: c.Parent},
		{FacilityID: facilityID, Role: user.RoleTeam, Code: c.Team},
		{FacilityID: facilityID, Role: user.RoleAdmin, Code: c.Admin},
	}
}

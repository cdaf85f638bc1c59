package absence

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/core"
)

// Absence types
const (
	TypeSingle = "single"
	TypeRange  = "range"
)

// Reasons
const (
	ReasonIllness     = "krankheit"
	ReasonHoliday     = "urlaub"
	ReasonAppointment = "termin"
	ReasonOther       = "sonstiges"
)

// Read statuses
const (
	StatusNew  = "new"
	StatusRead = "read"
)

var reasonLabels = map[string]string{
	ReasonIllness:     "Krankheit",
	ReasonHoliday:     "Urlaub",
	ReasonAppointment: "Termin",
	ReasonOther:       "Sonstiges",
}

// ReasonLabel returns the display name of a reason.
func ReasonLabel(reason string) string {
	if label, ok := reasonLabels[reason]; ok {
		return label
	}
	return reason
}

type Absence struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facility_id"`
	ChildID    string    `json:"child_id"`
	ChildName  string    `json:"child_name"`
	GroupID    string    `json:"group_id"`
	Type       string    `json:"type"`
	DateFrom   string    `json:"date_from"` // YYYY-MM-DD
	DateTo     string    `json:"date_to"`   // YYYY-MM-DD
	Reason     string    `json:"reason"`
	OtherText  string    `json:"other_text"`
	Status     string    `json:"status"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EndDate is the last day of the absence.
func (a Absence) EndDate() string {
	if a.Type == TypeRange && a.DateTo != "" {
		return a.DateTo
	}
	return a.DateFrom
}

// EndedBefore reports whether the absence ended before day (YYYY-MM-DD).
func (a Absence) EndedBefore(day string) bool {
	end := a.EndDate()
	return end != "" && end < day
}

// ReadStatus is the per-user read state of an Absence.
type ReadStatus struct {
	AbsenceID string    `json:"absence_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Hidden    bool      `json:"hidden"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Period contains the fields shared by new and updated absences.
type Period struct {
	Type      string `json:"type" validate:"required,oneof=single range"`
	DateFrom  string `json:"date_from" validate:"required,isodate"`
	DateTo    string `json:"date_to" validate:"required_if=Type range,omitempty,isodate"`
	Reason    string `json:"reason" validate:"required,oneof=krankheit urlaub termin sonstiges"`
	OtherText string `json:"other_text" validate:"required_if=Reason sonstiges"`
}

func (p *Period) clean() {
	p.Type = core.CleanString(p.Type, true /* lower */)
	p.DateFrom = core.CleanString(p.DateFrom)
	p.DateTo = core.CleanString(p.DateTo)
	p.Reason = core.CleanString(p.Reason, true /* lower */)
	p.OtherText = core.CleanString(p.OtherText)
}

func (p *Period) validate(validate *validator.Validate, obj interface{}) error {
	if err := validate.Struct(obj); err != nil {
		return err
	}
	if p.Type == TypeSingle {
		p.DateTo = p.DateFrom
	} else if p.DateTo < p.DateFrom {
		return core.NewValidationError(nil, core.FieldError{Field: "date_to", Error: "date_to cannot be before date_from"})
	}
	if p.Reason != ReasonOther {
		p.OtherText = ""
	}
	return nil
}

// NewAbsence contains information needed to report an Absence.
type NewAbsence struct {
	ChildID string `json:"child_id" validate:"required"`
	Period
}

func (na *NewAbsence) Validate(_ context.Context, validate *validator.Validate) error {
	na.ChildID = core.CleanString(na.ChildID)
	na.clean()
	return na.validate(validate, na)
}

// UpdateAbsence replaces the period and reason of an Absence.
type UpdateAbsence struct {
	Period
}

func (ua *UpdateAbsence) Validate(_ context.Context, validate *validator.Validate) error {
	ua.clean()
	return ua.validate(validate, ua)
}

type Filter struct {
	ChildID string
}

// TeamView is the absence board of a team member.
type TeamView struct {
	New           []Absence      `json:"new"`
	Read          []Absence      `json:"read"`
	UnreadByGroup map[string]int `json:"unread_by_group"`
	TotalUnread   int            `json:"total_unread"`
}

type TeamFilter struct {
	GroupID string `query:"group"`
}

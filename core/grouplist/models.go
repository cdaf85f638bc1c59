package grouplist

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/core"
)

// List types
const (
	TypeBring = "bring"
	TypeDuty  = "duty"
	TypePoll  = "poll"
)

var typeLabels = map[string]string{
	TypeBring: "Mitbringliste",
	TypeDuty:  "Dienstplan",
	TypePoll:  "Abstimmung",
}

// TypeLabel returns the display name of a list type.
func TypeLabel(typ string) string {
	if label, ok := typeLabels[typ]; ok {
		return label
	}
	return "Liste"
}

// Item is an entry of a List. Bring and duty items are assigned to one user, poll options collect votes.
type Item struct {
	Label        string   `json:"label"`
	AssignedTo   *string  `json:"assignedTo"`
	AssignedName *string  `json:"assignedName"`
	CreatedBy    string   `json:"createdBy,omitempty"`
	Votes        []string `json:"votes,omitempty"`
}

func (it Item) isAssigned() bool { return it.AssignedTo != nil && *it.AssignedTo != "" }

func (it Item) hasVote(userID string) bool {
	for _, v := range it.Votes {
		if v == userID {
			return true
		}
	}
	return false
}

type List struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facility_id"`
	GroupID    string    `json:"group_id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	Items      []Item    `json:"items"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (l List) IsPoll() bool { return l.Type == TypePoll }

// NewList contains information needed to create a List. Items are the initial labels (poll options).
type NewList struct {
	Title string   `json:"title" validate:"required"`
	Type  string   `json:"type" validate:"required,oneof=bring duty poll"`
	Items []string `json:"items" validate:"dive,required"`
}

func (nl *NewList) Validate(_ context.Context, validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Type = core.CleanString(nl.Type, true /* lower */)
	for i := range nl.Items {
		nl.Items[i] = core.CleanString(nl.Items[i])
	}
	return validate.Struct(nl)
}

type NewItem struct {
	Label string `json:"label" validate:"required"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Label = core.CleanString(ni.Label)
	return validate.Struct(ni)
}

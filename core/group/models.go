package group

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/core"
)

const (
	// AllGroups is the group filter value meaning "no filter".
	AllGroups = "all"

	EventGroupName  = "Event"
	EventGroupColor = "bg-stone-300 text-stone-800"
	EventGroupIcon  = "rainbow"

	unpositioned = 999
)

type Group struct {
	ID           string `json:"id"`
	FacilityID   string `json:"facility_id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
	Position     *int   `json:"position"`
	IsEventGroup bool   `json:"is_event_group"`
}

func (g Group) position() int {
	if g.Position == nil {
		return unpositioned
	}
	return *g.Position
}

// Sort orders groups the way they are displayed: the event group first, then by position.
// Groups without position go last.
func Sort(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.IsEventGroup != b.IsEventGroup {
			return a.IsEventGroup
		}
		return a.position() < b.position()
	})
}

// FindByID returns the group with id, or nil when id is empty, "all" or unknown.
func FindByID(groups []Group, id string) *Group {
	if id == "" || id == AllGroups {
		return nil
	}
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i]
		}
	}
	return nil
}

// EventGroupIDs returns the IDs of the event groups in groups.
func EventGroupIDs(groups []Group) map[string]bool {
	ids := make(map[string]bool)
	for _, g := range groups {
		if g.IsEventGroup {
			ids[g.ID] = true
		}
	}
	return ids
}

// NewGroup contains information needed to create a Group.
type NewGroup struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (ng *NewGroup) Validate(_ context.Context, validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Color = core.CleanString(ng.Color)
	ng.Icon = core.CleanString(ng.Icon, true /* lower */)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
type UpdateGroup struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

func (ug *UpdateGroup) Validate(_ context.Context, validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	if ug.Color != nil {
		color := core.CleanString(*ug.Color)
		ug.Color = &color
	}
	if ug.Icon != nil {
		icon := core.CleanString(*ug.Icon, true /* lower */)
		ug.Icon = &icon
	}
	return validate.Struct(ug)
}

type Reorder struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (r Reorder) Validate(validate *validator.Validate) error { return validate.Struct(r) }

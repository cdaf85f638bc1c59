package legacy

import "github.com/trezcool/kita/core/facility"

const (
	keyPrefix           = "montessori_kita_"
	facilitySettingsKey = "facility_settings"

	defaultFacilityName = "Montessori Kinderhaus"
	eventGroupID        = "event"
)

// Item is an entry of a collection. Items are free-form JSON objects identified by their "id".
type Item map[string]interface{}

// ID returns the "id" of the item, "" when it has none.
func (it Item) ID() string {
	id, _ := it["id"].(string)
	return id
}

type Group struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Light   string `json:"light,omitempty"`
	Icon    string `json:"icon"`
	Special string `json:"special,omitempty"`
}

// FacilitySettings is the facility configuration of installations without a database.
type FacilitySettings struct {
	Name         string            `json:"name"`
	Location     string            `json:"location"`
	OpeningHours string            `json:"openingHours"`
	Codes        map[string]string `json:"codes"`
	Groups       []Group           `json:"groups"`
}

func eventGroup() Group {
	return Group{ID: eventGroupID, Name: "Event", Color: "bg-stone-300 text-stone-800", Icon: "rainbow", Special: "event"}
}

// DefaultGroups are the groups of a fresh installation.
func DefaultGroups() []Group {
	return []Group{
		eventGroup(),
		{ID: "erde", Name: "Erde", Color: "bg-[#795C34] text-white", Light: "bg-[#DEC6A1] text-stone-800", Icon: "leaf"},
		{ID: "sonne", Name: "Sonne", Color: "bg-yellow-500 text-white", Light: "bg-yellow-100 text-yellow-800", Icon: "sun"},
		{ID: "feuer", Name: "Feuer", Color: "bg-red-500 text-white", Light: "bg-red-100 text-red-800", Icon: "flame"},
		{ID: "wasser", Name: "Wasser", Color: "bg-blue-500 text-white", Light: "bg-blue-100 text-blue-800", Icon: "droplets"},
		{ID: "blume", Name: "Blume", Color: "bg-pink-500 text-white", Light: "bg-pink-100 text-pink-800", Icon: "flower2"},
	}
}

func defaultCodes() map[string]string {
	codes := facility.DefaultCodes()
	return map[string]string{"parent": codes.Parent, "team": codes.Team, "admin": codes.Admin}
}

func DefaultFacilitySettings() FacilitySettings {
	return FacilitySettings{
		Name:   defaultFacilityName,
		Codes:  defaultCodes(),
		Groups: DefaultGroups(),
	}
}

func hasEventGroup(groups []Group) bool {
	for _, g := range groups {
		if g.ID == eventGroupID {
			return true
		}
	}
	return false
}

// mergeCodes returns base overridden by the non-empty codes of override.
func mergeCodes(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for role, code := range base {
		merged[role] = code
	}
	for role, code := range override {
		if code != "" {
			merged[role] = code
		}
	}
	return merged
}

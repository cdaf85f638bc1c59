package legacy

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
)

type (
	// KVStore is a flat key-value backend.
	KVStore interface {
		Get(ctx context.Context, key string) (val []byte, found bool, err error)
		Set(ctx context.Context, key string, val []byte) error
		Delete(ctx context.Context, keys ...string) error
		Keys(ctx context.Context, prefix string) ([]string, error)
	}

	// Store keeps JSON collections in a KVStore, one key per collection.
	Store struct {
		kv     KVStore
		logger core.Logger
	}
)

func NewStore(kv KVStore, logger core.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

func key(name string) string { return keyPrefix + name }

func (s *Store) getJSON(ctx context.Context, name string, dest interface{}) (bool, error) {
	raw, found, err := s.kv.Get(ctx, key(name))
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", name)
	}
	if !found || len(raw) == 0 {
		return false, nil
	}
	if err = json.Unmarshal(raw, dest); err != nil {
		// corrupt entries read as missing
		s.logger.Warn("decoding legacy collection "+name, err)
		return false, nil
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, name string, val interface{}) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return errors.Wrapf(s.kv.Set(ctx, key(name), raw), "writing %s", name)
}

// Get returns the items of a collection, an empty slice when it does not exist.
func (s *Store) Get(ctx context.Context, collection string) ([]Item, error) {
	items := make([]Item, 0)
	if _, err := s.getJSON(ctx, collection, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]Item, 0)
	}
	return items, nil
}

// Set replaces the items of a collection.
func (s *Store) Set(ctx context.Context, collection string, items []Item) error {
	if items == nil {
		items = make([]Item, 0)
	}
	return s.setJSON(ctx, collection, items)
}

// Add appends item to a collection, generating its id when missing.
func (s *Store) Add(ctx context.Context, collection string, item Item) (Item, error) {
	items, err := s.Get(ctx, collection)
	if err != nil {
		return nil, err
	}
	newItem := make(Item, len(item)+1)
	for k, v := range item {
		newItem[k] = v
	}
	if newItem.ID() == "" {
		newItem["id"] = uuid.New().String()
	}
	if err = s.Set(ctx, collection, append(items, newItem)); err != nil {
		return nil, err
	}
	return newItem, nil
}

// Update replaces the item with the same id. It reports whether the item was found.
func (s *Store) Update(ctx context.Context, collection string, item Item) (bool, error) {
	id := item.ID()
	if id == "" {
		return false, nil
	}
	items, err := s.Get(ctx, collection)
	if err != nil {
		return false, err
	}
	for i := range items {
		if items[i].ID() == id {
			items[i] = item
			return true, s.Set(ctx, collection, items)
		}
	}
	return false, nil
}

// Delete removes the items with id from a collection.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	items, err := s.Get(ctx, collection)
	if err != nil {
		return err
	}
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID() != id {
			kept = append(kept, it)
		}
	}
	return s.Set(ctx, collection, kept)
}

// Clear removes every collection.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return errors.Wrap(err, "listing keys")
	}
	if len(keys) == 0 {
		return nil
	}
	return s.kv.Delete(ctx, keys...)
}

// FacilitySettings returns the stored settings merged over the defaults.
// The defaults are persisted on first read and the event group is always present.
func (s *Store) FacilitySettings(ctx context.Context) (FacilitySettings, error) {
	defaults := DefaultFacilitySettings()

	var current FacilitySettings
	found, err := s.getJSON(ctx, facilitySettingsKey, &current)
	if err != nil {
		return FacilitySettings{}, err
	}
	if !found {
		if err = s.setJSON(ctx, facilitySettingsKey, defaults); err != nil {
			return FacilitySettings{}, err
		}
		return defaults, nil
	}

	// a stored empty group list still gets the event group, only a missing one falls back to the defaults
	if current.Groups != nil && !hasEventGroup(current.Groups) {
		current.Groups = append([]Group{eventGroup()}, current.Groups...)
		if err = s.setJSON(ctx, facilitySettingsKey, current); err != nil {
			return FacilitySettings{}, err
		}
	}

	merged := current
	if merged.Name == "" {
		merged.Name = defaults.Name
	}
	merged.Codes = mergeCodes(defaults.Codes, current.Codes)
	if len(merged.Groups) == 0 {
		merged.Groups = defaults.Groups
	}
	return merged, nil
}

// SaveFacilitySettings merges settings over the current ones.
// Empty fields and an empty group list keep their current value.
func (s *Store) SaveFacilitySettings(ctx context.Context, settings FacilitySettings) (FacilitySettings, error) {
	current, err := s.FacilitySettings(ctx)
	if err != nil {
		return FacilitySettings{}, err
	}
	merged := current
	if settings.Name != "" {
		merged.Name = settings.Name
	}
	if settings.Location != "" {
		merged.Location = settings.Location
	}
	if settings.OpeningHours != "" {
		merged.OpeningHours = settings.OpeningHours
	}
	merged.Codes = mergeCodes(current.Codes, settings.Codes)
	if len(settings.Groups) > 0 {
		merged.Groups = settings.Groups
	}
	if err = s.setJSON(ctx, facilitySettingsKey, merged); err != nil {
		return FacilitySettings{}, err
	}
	return merged, nil
}

// Groups returns the groups of the facility settings.
func (s *Store) Groups(ctx context.Context) ([]Group, error) {
	settings, err := s.FacilitySettings(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Groups, nil
}

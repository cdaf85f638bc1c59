package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/mealplan"
)

type mealPlanRepository struct {
	db *DB
}

var _ mealplan.Repository = (*mealPlanRepository)(nil) // interface compliance check

func NewMealPlanRepository(db *DB) *mealPlanRepository {
	return &mealPlanRepository{db: db}
}

func (repo *mealPlanRepository) QueryDays(_ context.Context, facilityID, weekKey string, _ ...core.DBExecutor) ([]mealplan.Day, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	days := make([]mealplan.Day, 0, len(mealplan.DayKeys))
	for _, dayKey := range mealplan.DayKeys {
		if d, ok := repo.db.mealDays[key(facilityID, weekKey, dayKey)]; ok {
			days = append(days, d)
		}
	}
	return days, nil
}

func (repo *mealPlanRepository) UpsertDays(_ context.Context, facilityID string, days []mealplan.Day, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, d := range days {
		repo.db.mealDays[key(facilityID, d.WeekKey, d.DayKey)] = d
	}
	return nil
}

func (repo *mealPlanRepository) ClearMeal(_ context.Context, facilityID, mealType, value string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prefix := facilityID + "/"
	for k, d := range repo.db.mealDays {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		switch {
		case mealType == mealplan.MealBreakfast && d.Breakfast == value:
			d.Breakfast = ""
		case mealType == mealplan.MealLunch && d.Lunch == value:
			d.Lunch = ""
		case mealType == mealplan.MealSnack && d.Snack == value:
			d.Snack = ""
		default:
			continue
		}
		repo.db.mealDays[k] = d
	}
	return nil
}

func (repo *mealPlanRepository) QueryOptions(_ context.Context, facilityID string, _ ...core.DBExecutor) ([]mealplan.Option, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	opts := make([]mealplan.Option, 0)
	for _, opt := range repo.db.mealOptions {
		if opt.FacilityID == facilityID {
			opts = append(opts, opt)
		}
	}
	sort.Slice(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if a.MealType != b.MealType {
			return a.MealType < b.MealType
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Name < b.Name
	})
	return opts, nil
}

func (repo *mealPlanRepository) CreateOption(_ context.Context, opt mealplan.Option, _ ...core.DBExecutor) (mealplan.Option, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, o := range repo.db.mealOptions {
		if o.FacilityID == opt.FacilityID && o.MealType == opt.MealType && o.Name == opt.Name {
			return mealplan.Option{}, mealplan.ErrOptionExists
		}
	}
	opt.ID = uuid.New().String()
	repo.db.mealOptions[opt.ID] = opt
	return opt, nil
}

func (repo *mealPlanRepository) findOption(facilityID, mealType, name string) (string, bool) {
	for id, o := range repo.db.mealOptions {
		if o.FacilityID == facilityID && o.MealType == mealType && o.Name == name {
			return id, true
		}
	}
	return "", false
}

func (repo *mealPlanRepository) DeleteOption(_ context.Context, facilityID, mealType, name string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	id, ok := repo.findOption(facilityID, mealType, name)
	if !ok {
		return 0, nil
	}
	delete(repo.db.mealOptions, id)
	return 1, nil
}

func (repo *mealPlanRepository) UpdateOptionPosition(_ context.Context, facilityID, mealType, name string, position int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	id, ok := repo.findOption(facilityID, mealType, name)
	if !ok {
		return nil // unknown names are skipped
	}
	opt := repo.db.mealOptions[id]
	opt.Position = position
	repo.db.mealOptions[id] = opt
	return nil
}

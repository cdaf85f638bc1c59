package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/mealplan"
)

// columns of meal_plans holding a meal, by meal type
var mealColumns = map[string]string{
	mealplan.MealBreakfast: "breakfast",
	mealplan.MealLunch:     "lunch",
	mealplan.MealSnack:     "snack",
}

type dayRow struct {
	WeekKey     string    `db:"week_key"`
	DayKey      string    `db:"day_key"`
	Breakfast   string    `db:"breakfast"`
	Lunch       string    `db:"lunch"`
	Snack       string    `db:"snack"`
	AllergyNote string    `db:"allergy_note"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type optionRow struct {
	ID         string `db:"id"`
	FacilityID string `db:"facility_id"`
	MealType   string `db:"meal_type"`
	Name       string `db:"name"`
	Position   int    `db:"position"`
}

type mealPlanRepository struct {
	repository
}

var _ mealplan.Repository = (*mealPlanRepository)(nil) // interface compliance check

func NewMealPlanRepository(exec core.DBExecutor) *mealPlanRepository {
	return &mealPlanRepository{repository{exec: exec}}
}

func (repo mealPlanRepository) QueryDays(ctx context.Context, facilityID, weekKey string, exec ...core.DBExecutor) ([]mealplan.Day, error) {
	days := make([]mealplan.Day, 0, len(mealplan.DayKeys))
	if !validID(facilityID) {
		return days, nil
	}
	query := `SELECT week_key, day_key, breakfast, lunch, snack, allergy_note, updated_at
		FROM meal_plans WHERE facility_id = $1 AND week_key = $2`
	var rows []dayRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, facilityID, weekKey); err != nil {
		return nil, errors.Wrap(err, "querying meal plan")
	}
	for _, r := range rows {
		days = append(days, mealplan.Day(r))
	}
	return days, nil
}

func (repo mealPlanRepository) UpsertDays(ctx context.Context, facilityID string, days []mealplan.Day, exec ...core.DBExecutor) error {
	query := `INSERT INTO meal_plans (facility_id, week_key, day_key, breakfast, lunch, snack, allergy_note, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (facility_id, week_key, day_key) DO UPDATE SET
			breakfast = EXCLUDED.breakfast, lunch = EXCLUDED.lunch, snack = EXCLUDED.snack,
			allergy_note = EXCLUDED.allergy_note, updated_at = EXCLUDED.updated_at`
	exe := repo.getExec(exec)
	for _, d := range days {
		if _, err := exe.ExecContext(ctx, query,
			facilityID, d.WeekKey, d.DayKey, d.Breakfast, d.Lunch, d.Snack, d.AllergyNote, d.UpdatedAt.UTC(),
		); err != nil {
			return errors.Wrapf(err, "upserting meal plan of %s %s", d.WeekKey, d.DayKey)
		}
	}
	return nil
}

func (repo mealPlanRepository) ClearMeal(ctx context.Context, facilityID, mealType, value string, exec ...core.DBExecutor) error {
	col, ok := mealColumns[mealType]
	if !ok {
		return errors.Errorf("unknown meal type %q", mealType)
	}
	query := fmt.Sprintf("UPDATE meal_plans SET %s = '' WHERE facility_id = $1 AND %s = $2", col, col)
	_, err := repo.getExec(exec).ExecContext(ctx, query, facilityID, value)
	return errors.Wrap(err, "clearing meal")
}

func (repo mealPlanRepository) QueryOptions(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]mealplan.Option, error) {
	opts := make([]mealplan.Option, 0)
	if !validID(facilityID) {
		return opts, nil
	}
	query := `SELECT id, facility_id, meal_type, name, position FROM meal_options
		WHERE facility_id = $1 ORDER BY meal_type ASC, position ASC, name ASC`
	var rows []optionRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, facilityID); err != nil {
		return nil, errors.Wrap(err, "querying meal options")
	}
	for _, r := range rows {
		opts = append(opts, mealplan.Option(r))
	}
	return opts, nil
}

func (repo mealPlanRepository) CreateOption(ctx context.Context, opt mealplan.Option, exec ...core.DBExecutor) (mealplan.Option, error) {
	opt.ID = uuid.New().String()
	query := "INSERT INTO meal_options (id, facility_id, meal_type, name, position) VALUES ($1, $2, $3, $4, $5)"
	if _, err := repo.getExec(exec).ExecContext(ctx, query, opt.ID, opt.FacilityID, opt.MealType, opt.Name, opt.Position); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return mealplan.Option{}, mealplan.ErrOptionExists
		}
		return mealplan.Option{}, errors.Wrap(err, "inserting meal option")
	}
	return opt, nil
}

func (repo mealPlanRepository) DeleteOption(ctx context.Context, facilityID, mealType, name string, exec ...core.DBExecutor) (int, error) {
	query := "DELETE FROM meal_options WHERE facility_id = $1 AND meal_type = $2 AND name = $3"
	res, err := repo.getExec(exec).ExecContext(ctx, query, facilityID, mealType, name)
	if err != nil {
		return 0, errors.Wrap(err, "deleting meal option")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting meal option")
	}
	return int(cnt), nil
}

func (repo mealPlanRepository) UpdateOptionPosition(ctx context.Context, facilityID, mealType, name string, position int, exec ...core.DBExecutor) error {
	query := "UPDATE meal_options SET position = $4 WHERE facility_id = $1 AND meal_type = $2 AND name = $3"
	_, err := repo.getExec(exec).ExecContext(ctx, query, facilityID, mealType, name, position)
	return errors.Wrap(err, "updating meal option position")
}

package mealplan

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/core"
)

// Meal types
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealSnack     = "snack"
)

var (
	MealTypes = []string{MealBreakfast, MealLunch, MealSnack}
	DayKeys   = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
)

// Day is the plan of one weekday.
type Day struct {
	WeekKey     string    `json:"week_key"`
	DayKey      string    `json:"day_key"`
	Breakfast   string    `json:"breakfast"`
	Lunch       string    `json:"lunch"`
	Snack       string    `json:"snack"`
	AllergyNote string    `json:"allergy_note"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Week struct {
	WeekKey string `json:"week_key"`
	Range   string `json:"range"`
	Days    []Day  `json:"days"`
}

// Option is a predefined meal offered when editing the plan.
type Option struct {
	ID         string `json:"id"`
	FacilityID string `json:"facility_id"`
	MealType   string `json:"meal_type"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
}

type DayInput struct {
	Breakfast   string `json:"breakfast"`
	Lunch       string `json:"lunch"`
	Snack       string `json:"snack"`
	AllergyNote string `json:"allergy_note"`
}

// SaveWeek replaces the plan of a week. Missing days are saved empty.
type SaveWeek struct {
	WeekKey string              `json:"week_key" validate:"required,weekkey"`
	Days    map[string]DayInput `json:"days" validate:"dive,keys,oneof=monday tuesday wednesday thursday friday,endkeys"`
}

func (sw *SaveWeek) Validate(_ context.Context, validate *validator.Validate) error {
	sw.WeekKey = core.CleanString(sw.WeekKey, false)
	for key, day := range sw.Days {
		sw.Days[key] = DayInput{
			Breakfast:   core.CleanString(day.Breakfast),
			Lunch:       core.CleanString(day.Lunch),
			Snack:       core.CleanString(day.Snack),
			AllergyNote: core.CleanString(day.AllergyNote),
		}
	}
	if err := validate.Struct(sw); err != nil {
		return err
	}
	if _, err := MondayOf(sw.WeekKey, time.Local); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "week_key", Error: err.Error()})
	}
	return nil
}

type NewOption struct {
	MealType string `json:"meal_type" validate:"required,oneof=breakfast lunch snack"`
	Name     string `json:"name" validate:"required"`
}

func (no *NewOption) Validate(validate *validator.Validate) error {
	no.MealType = core.CleanString(no.MealType, true /* lower */)
	no.Name = core.CleanString(no.Name)
	return validate.Struct(no)
}

type ReorderOptions struct {
	MealType string   `json:"meal_type" validate:"required,oneof=breakfast lunch snack"`
	Names    []string `json:"names" validate:"required,min=1,dive,required"`
}

func (ro *ReorderOptions) Validate(validate *validator.Validate) error {
	ro.MealType = core.CleanString(ro.MealType, true /* lower */)
	return validate.Struct(ro)
}

package mealplan

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

var (
	// errors
	ErrOptionNotFound = core.NewNotFoundError("meal option")
	ErrOptionExists   = errors.New("this option already exists")
)

type (
	Repository interface {
		QueryDays(ctx context.Context, facilityID, weekKey string, exec ...core.DBExecutor) ([]Day, error)
		UpsertDays(ctx context.Context, facilityID string, days []Day, exec ...core.DBExecutor) error
		// ClearMeal empties every saved entry of mealType equal to value.
		ClearMeal(ctx context.Context, facilityID, mealType, value string, exec ...core.DBExecutor) error

		QueryOptions(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]Option, error)
		CreateOption(ctx context.Context, opt Option, exec ...core.DBExecutor) (Option, error)
		DeleteOption(ctx context.Context, facilityID, mealType, name string, exec ...core.DBExecutor) (int, error)
		UpdateOptionPosition(ctx context.Context, facilityID, mealType, name string, position int, exec ...core.DBExecutor) error
	}

	Service struct {
		facilityID string
		repo       Repository
		tx         core.Transactor
		pushSvc    core.PushService
		logger     core.Logger
	}
)

func NewService(conf *core.Config, repo Repository, tx core.Transactor, pushSvc core.PushService, logger core.Logger) *Service {
	return &Service{facilityID: conf.FacilityID, repo: repo, tx: tx, pushSvc: pushSvc, logger: logger}
}

// CurrentWeekKey returns the key of the current week.
func (svc *Service) CurrentWeekKey() string { return WeekKey(core.NowFunc()) }

// Week returns the five days of a week, days never saved are empty.
func (svc *Service) Week(ctx context.Context, weekKey string) (Week, error) {
	monday, err := MondayOf(weekKey, time.Local)
	if err != nil {
		return Week{}, core.NewValidationError(err, core.FieldError{Field: "week", Error: err.Error()})
	}
	saved, err := svc.repo.QueryDays(ctx, svc.facilityID, weekKey)
	if err != nil {
		return Week{}, errors.Wrap(err, "querying meal plan")
	}
	byKey := make(map[string]Day, len(saved))
	for _, d := range saved {
		byKey[d.DayKey] = d
	}

	week := Week{WeekKey: weekKey, Range: FormatRange(monday), Days: make([]Day, 0, len(DayKeys))}
	for _, key := range DayKeys {
		d, ok := byKey[key]
		if !ok {
			d = Day{WeekKey: weekKey, DayKey: key}
		}
		week.Days = append(week.Days, d)
	}
	return week, nil
}

// SaveWeek stores all five days of a week and notifies everyone.
func (svc *Service) SaveWeek(ctx context.Context, actor user.User, sw SaveWeek) (Week, error) {
	if !actor.IsAdmin() {
		return Week{}, core.ErrPermissionDenied
	}
	monday, err := MondayOf(sw.WeekKey, time.Local)
	if err != nil {
		return Week{}, core.NewValidationError(err)
	}

	now := core.NowFunc().UTC()
	days := make([]Day, 0, len(DayKeys))
	for _, key := range DayKeys {
		in := sw.Days[key]
		days = append(days, Day{
			WeekKey:     sw.WeekKey,
			DayKey:      key,
			Breakfast:   in.Breakfast,
			Lunch:       in.Lunch,
			Snack:       in.Snack,
			AllergyNote: in.AllergyNote,
			UpdatedAt:   now,
		})
	}
	if err = svc.repo.UpsertDays(ctx, svc.facilityID, days); err != nil {
		return Week{}, errors.Wrap(err, "saving meal plan")
	}

	weekRange := FormatRange(monday)
	core.NotifyPush(ctx, svc.pushSvc, svc.logger, core.PushMessage{
		Title:    "Speiseplan aktualisiert",
		Body:     fmt.Sprintf("Der Speiseplan für %s wurde aktualisiert.", weekRange),
		Category: core.PushCategoryFood,
		Data:     map[string]string{"type": "food"},
	})
	return Week{WeekKey: sw.WeekKey, Range: weekRange, Days: days}, nil
}

// Options returns the option names per meal type, in order.
func (svc *Service) Options(ctx context.Context) (map[string][]string, error) {
	opts, err := svc.repo.QueryOptions(ctx, svc.facilityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying meal options")
	}
	byType := make(map[string][]string, len(MealTypes))
	for _, mt := range MealTypes {
		byType[mt] = []string{}
	}
	for _, o := range opts {
		if _, ok := byType[o.MealType]; ok {
			byType[o.MealType] = append(byType[o.MealType], o.Name)
		}
	}
	return byType, nil
}

func (svc *Service) AddOption(ctx context.Context, actor user.User, no NewOption) (Option, error) {
	if !actor.IsAdmin() {
		return Option{}, core.ErrPermissionDenied
	}
	byType, err := svc.Options(ctx)
	if err != nil {
		return Option{}, err
	}
	current := byType[no.MealType]
	for _, name := range current {
		if name == no.Name {
			return Option{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: ErrOptionExists.Error()})
		}
	}
	return svc.repo.CreateOption(ctx, Option{
		FacilityID: svc.facilityID,
		MealType:   no.MealType,
		Name:       no.Name,
		Position:   len(current),
	})
}

// DeleteOption removes an option and empties the saved entries that used it.
func (svc *Service) DeleteOption(ctx context.Context, actor user.User, mealType, name string) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		n, err := svc.repo.DeleteOption(ctx, svc.facilityID, mealType, name, exec)
		if err != nil {
			return errors.Wrap(err, "deleting meal option")
		}
		if n == 0 {
			return ErrOptionNotFound
		}
		return svc.repo.ClearMeal(ctx, svc.facilityID, mealType, name, exec)
	})
}

// ReorderOptions rewrites the positions of the options of a meal type to follow names.
func (svc *Service) ReorderOptions(ctx context.Context, actor user.User, ro ReorderOptions) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		for i, name := range ro.Names {
			if err := svc.repo.UpdateOptionPosition(ctx, svc.facilityID, ro.MealType, name, i, exec); err != nil {
				return errors.Wrap(err, "updating meal option position")
			}
		}
		return nil
	})
}

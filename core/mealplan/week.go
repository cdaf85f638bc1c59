package mealplan

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var errInvalidWeekKey = errors.New("invalid week key")

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekKey returns the "YYYY-Www" key of the week t is in.
// Weeks are counted from January 1st and start on Sunday.
func WeekKey(t time.Time) string {
	t = startOfDay(t)
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	days := t.YearDay() - 1
	week := int(math.Ceil(float64(days+int(jan1.Weekday())+1) / 7))
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// MondayOf returns the Monday of the week identified by weekKey.
func MondayOf(weekKey string, loc *time.Location) (time.Time, error) {
	if len(weekKey) != 8 || weekKey[4:6] != "-W" {
		return time.Time{}, errInvalidWeekKey
	}
	year, err := strconv.Atoi(weekKey[:4])
	if err != nil {
		return time.Time{}, errInvalidWeekKey
	}
	week, err := strconv.Atoi(weekKey[6:])
	if err != nil || week < 1 || week > 54 {
		return time.Time{}, errInvalidWeekKey
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	sunday := 7*(week-1) - int(jan1.Weekday())
	return jan1.AddDate(0, 0, sunday+1), nil
}

// MondayBefore returns the Monday of the Monday-to-Sunday week t is in.
func MondayBefore(t time.Time) time.Time {
	t = startOfDay(t)
	offset := 1 - int(t.Weekday())
	if t.Weekday() == time.Sunday {
		offset = -6
	}
	return t.AddDate(0, 0, offset)
}

// FormatRange formats the Monday to Friday range starting at monday as "dd.mm. – dd.mm.".
func FormatRange(monday time.Time) string {
	friday := monday.AddDate(0, 0, 4)
	return fmt.Sprintf("%s – %s", monday.Format("02.01."), friday.Format("02.01."))
}

// WeekRange returns the Monday to Friday range of the week t is in. Sundays belong to the week before.
func WeekRange(t time.Time) string {
	return FormatRange(MondayBefore(t))
}

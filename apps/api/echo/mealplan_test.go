package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/mealplan"
	"github.com/trezcool/kita/core/user"
	pushsvc "github.com/trezcool/kita/services/push"
)

func Test_mealPlanApi_week(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	parentTk := env.token(t, parent)

	week := func(t *testing.T, query string) mealplan.Week {
		rec := env.run(t, httpTest{path: "/api/mealplan" + query, token: parentTk, wantCode: http.StatusOK})
		var w mealplan.Week
		unmarshal(t, rec, &w)
		return w
	}

	t.Run("current week by default", func(t *testing.T) {
		w := week(t, "")
		assert.Equal(t, mealplan.WeekKey(core.NowFunc()), w.WeekKey)
		assert.Len(t, w.Days, 5)
	})

	t.Run("empty week", func(t *testing.T) {
		w := week(t, "?week=2024-W10")
		assert.Equal(t, "2024-W10", w.WeekKey)
		assert.Equal(t, "04.03. – 08.03.", w.Range)
		require.Len(t, w.Days, 5)
		for i, d := range w.Days {
			assert.Equal(t, mealplan.DayKeys[i], d.DayKey)
			assert.Equal(t, "", d.Lunch)
		}
	})

	t.Run("invalid week", func(t *testing.T) {
		env.run(t, httpTest{
			path: "/api/mealplan?week=2024-10", token: parentTk, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"week": "invalid week key"}),
		})
	})

	t.Run("save", func(t *testing.T) {
		body := []byte(`{"week_key": "2024-W10", "days": {"monday": {"lunch": " Nudeln "}, "wednesday": {"breakfast": "Müsli", "allergy_note": "Nüsse"}}}`)
		env.run(t, httpTest{method: http.MethodPut, path: "/api/mealplan", token: env.token(t, team), body: body, wantCode: http.StatusForbidden})
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/mealplan", token: env.token(t, admin), wantCode: http.StatusBadRequest,
			body:     []byte(`{"week_key": "W10"}`),
			wantData: marchallObj(t, map[string]string{"week_key": "week_key must be a week formatted as YYYY-Www"}),
		})
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/mealplan", token: env.token(t, admin), wantCode: http.StatusBadRequest,
			body: []byte(`{"week_key": "2024-W10", "days": {"sunday": {"lunch": "Pizza"}}}`),
		})
		require.Empty(t, pushsvc.SentMessages)

		rec := env.run(t, httpTest{method: http.MethodPut, path: "/api/mealplan", token: env.token(t, admin), body: body, wantCode: http.StatusOK})
		var saved mealplan.Week
		unmarshal(t, rec, &saved)
		require.Len(t, saved.Days, 5)
		assert.Equal(t, "Nudeln", saved.Days[0].Lunch)

		w := week(t, "?week=2024-W10")
		assert.Equal(t, "Nudeln", w.Days[0].Lunch)
		assert.Equal(t, "Müsli", w.Days[2].Breakfast)
		assert.Equal(t, "Nüsse", w.Days[2].AllergyNote)
		assert.Equal(t, "", w.Days[4].Snack)

		msg, ok := pushsvc.LastMessage()
		require.True(t, ok)
		assert.Equal(t, core.PushMessage{
			Title:    "Speiseplan aktualisiert",
			Body:     "Der Speiseplan für 04.03. – 08.03. wurde aktualisiert.",
			Category: core.PushCategoryFood,
			Data:     map[string]string{"type": "food"},
		}, msg)
	})
}

func Test_mealPlanApi_options(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	token := env.token(t, admin)

	options := func(lunch ...string) []byte {
		if lunch == nil {
			lunch = []string{}
		}
		return marchallObj(t, map[string][]string{
			mealplan.MealBreakfast: {},
			mealplan.MealLunch:     lunch,
			mealplan.MealSnack:     {},
		})
	}
	addOption := func(t *testing.T, name string, wantCode int) {
		env.run(t, httpTest{
			method: http.MethodPost, path: "/api/mealplan/options", token: token, wantCode: wantCode,
			body: marchallObj(t, mealplan.NewOption{MealType: "Lunch", Name: name}),
		})
	}

	env.run(t, httpTest{path: "/api/mealplan/options", token: env.token(t, team), wantCode: http.StatusOK, wantData: options()})

	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/mealplan/options", token: env.token(t, team), wantCode: http.StatusForbidden,
		body: []byte(`{"meal_type": "lunch", "name": "Nudeln"}`),
	})
	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/mealplan/options", token: token, wantCode: http.StatusBadRequest,
		body: []byte(`{"meal_type": "dinner", "name": "Nudeln"}`),
	})
	addOption(t, " Nudeln ", http.StatusCreated)
	addOption(t, "Reis", http.StatusCreated)
	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/mealplan/options", token: token, wantCode: http.StatusBadRequest,
		body:     []byte(`{"meal_type": "lunch", "name": "Nudeln"}`),
		wantData: marchallObj(t, map[string]string{"name": mealplan.ErrOptionExists.Error()}),
	})
	env.run(t, httpTest{path: "/api/mealplan/options", token: token, wantCode: http.StatusOK, wantData: options("Nudeln", "Reis")})

	t.Run("reorder", func(t *testing.T) {
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/mealplan/options/order", token: token, wantCode: http.StatusBadRequest,
			body: []byte(`{"meal_type": "lunch", "names": []}`),
		})
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/mealplan/options/order", token: token, wantCode: http.StatusOK,
			body:     []byte(`{"meal_type": "lunch", "names": ["Reis", "Nudeln", "Unbekannt"]}`),
			wantData: options("Reis", "Nudeln"),
		})
	})

	t.Run("delete clears the plan", func(t *testing.T) {
		_, err := env.svcs.MealPlan.SaveWeek(ctx(), admin, mealplan.SaveWeek{
			WeekKey: "2024-W10",
			Days: map[string]mealplan.DayInput{
				"monday":  {Lunch: "Nudeln"},
				"tuesday": {Lunch: "Reis", Snack: "Nudeln"},
			},
		})
		require.NoError(t, err)

		env.run(t, httpTest{method: http.MethodDelete, path: "/api/mealplan/options/lunch/Nudeln", token: env.token(t, team), wantCode: http.StatusForbidden})
		env.run(t, httpTest{method: http.MethodDelete, path: "/api/mealplan/options/lunch/Nudeln", token: token, wantCode: http.StatusNoContent})
		env.run(t, httpTest{
			method: http.MethodDelete, path: "/api/mealplan/options/lunch/Nudeln", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "meal option not found"}),
		})
		env.run(t, httpTest{path: "/api/mealplan/options", token: token, wantCode: http.StatusOK, wantData: options("Reis")})

		w, err := env.svcs.MealPlan.Week(ctx(), "2024-W10")
		require.NoError(t, err)
		assert.Equal(t, "", w.Days[0].Lunch)
		assert.Equal(t, "Reis", w.Days[1].Lunch)
		assert.Equal(t, "Nudeln", w.Days[1].Snack, "only the meal type of the option is cleared")
	})
}

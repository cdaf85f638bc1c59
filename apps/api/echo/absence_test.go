package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/absence"
	"github.com/trezcool/kita/core/user"
	pushsvc "github.com/trezcool/kita/services/push"
	"github.com/trezcool/kita/tests"
)

func absenceIDs(absences []absence.Absence) []string {
	ids := make([]string, 0, len(absences))
	for _, a := range absences {
		ids = append(ids, a.ID)
	}
	return ids
}

func day(offset int) string {
	return core.Today().AddDate(0, 0, offset).Format(core.DateLayout)
}

func Test_absenceApi_parent(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	anna := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	mia, anna := testutil.CreateChild(t, env.repos.Users, anna, "Mia", grp.ID, "")
	bernd := env.createUser(t, "Bernd", "bernd@test.de", user.RoleParent)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	annaTk, berndTk := env.token(t, anna), env.token(t, bernd)

	report := func(fields map[string]string) []byte {
		data := map[string]string{"child_id": mia.ID, "type": "single", "date_from": day(0), "reason": "krankheit"}
		for k, v := range fields {
			data[k] = v
		}
		return marchallObj(t, data)
	}

	tests := []httpTest{
		{
			name: "required fields", token: annaTk, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"child_id":  "this field is required",
				"type":      "this field is required",
				"date_from": "this field is required",
				"reason":    "this field is required",
			}),
		},
		{
			name: "range without end", token: annaTk, body: report(map[string]string{"type": "range"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date_to": "this field is required"}),
		},
		{
			name: "end before start", token: annaTk, wantCode: http.StatusBadRequest,
			body:     report(map[string]string{"type": "range", "date_from": day(2), "date_to": day(1)}),
			wantData: marchallObj(t, map[string]string{"date_to": "date_to cannot be before date_from"}),
		},
		{
			name: "bad date", token: annaTk, body: report(map[string]string{"date_from": "1.2.2024"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date_from": "date_from must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name: "other without text", token: annaTk, body: report(map[string]string{"reason": "sonstiges"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"other_text": "this field is required"}),
		},
		{
			name: "someone else's child", token: berndTk, body: report(nil), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "child not found"}),
		},
		{name: "parents only", token: env.token(t, team), body: report(nil), wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/absences"
			env.run(t, tt)
		})
	}
	require.Empty(t, pushsvc.SentMessages)

	rec := env.run(t, httpTest{
		method: http.MethodPost, path: "/api/absences", token: annaTk, wantCode: http.StatusCreated,
		body: report(map[string]string{"date_to": day(5), "other_text": "ignored"}),
	})
	var abs absence.Absence
	unmarshal(t, rec, &abs)
	assert.Equal(t, "Mia", abs.ChildName)
	assert.Equal(t, grp.ID, abs.GroupID)
	assert.Equal(t, day(0), abs.DateTo, "single absences end the day they start")
	assert.Equal(t, "", abs.OtherText)
	assert.Equal(t, absence.StatusNew, abs.Status)

	msg, ok := pushsvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, core.PushMessage{
		Title:    "Neue Abwesenheitsmeldung",
		Body:     "Mia: Krankheit",
		Category: core.PushCategoryAbsences,
		GroupIDs: []string{grp.ID},
		Data:     map[string]string{"type": "absence", "absenceId": abs.ID},
	}, msg)

	t.Run("list for child", func(t *testing.T) {
		env.run(t, httpTest{
			path: "/api/absences", token: annaTk, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"child": "this field is required"}),
		})
		env.run(t, httpTest{path: "/api/absences?child=" + mia.ID, token: berndTk, wantCode: http.StatusNotFound})

		for _, token := range []string{annaTk, env.token(t, team)} {
			rec := env.run(t, httpTest{path: "/api/absences?child=" + mia.ID, token: token, wantCode: http.StatusOK})
			var absences []absence.Absence
			unmarshal(t, rec, &absences)
			assert.Equal(t, []string{abs.ID}, absenceIDs(absences))
		}
	})

	t.Run("update", func(t *testing.T) {
		path := "/api/absences/" + abs.ID
		body := marchallObj(t, map[string]string{
			"type": "range", "date_from": day(1), "date_to": day(3), "reason": "sonstiges", "other_text": " Kur ",
		})
		env.run(t, httpTest{
			method: http.MethodPut, path: path, token: berndTk, body: body, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "absence not found"}),
		})

		rec := env.run(t, httpTest{method: http.MethodPut, path: path, token: annaTk, body: body, wantCode: http.StatusOK})
		var updated absence.Absence
		unmarshal(t, rec, &updated)
		assert.Equal(t, abs.ID, updated.ID)
		assert.Equal(t, absence.TypeRange, updated.Type)
		assert.Equal(t, day(3), updated.DateTo)
		assert.Equal(t, "Kur", updated.OtherText)
		assert.Equal(t, "Mia", updated.ChildName)
	})

	t.Run("delete", func(t *testing.T) {
		path := "/api/absences/" + abs.ID
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: berndTk, wantCode: http.StatusNotFound})
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: annaTk, wantCode: http.StatusNoContent})
		env.run(t, httpTest{path: "/api/absences?child=" + mia.ID, token: annaTk, wantCode: http.StatusOK, wantData: marchallList(t)})
	})
}

func Test_absenceApi_team(t *testing.T) {
	env := setup(t)
	sonnen := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	monde := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Monde", "bg-blue-500", 2)
	event, err := env.svcs.Group.EnsureEventGroup(ctx())
	require.NoError(t, err)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	colleague := env.createUser(t, "Eva", "eva@test.de", user.RoleTeam)
	token := env.token(t, team)

	now := time.Now().UTC()
	createAbsence := func(childName, groupID, from, to string, age time.Duration) absence.Absence {
		typ := absence.TypeSingle
		if from != to {
			typ = absence.TypeRange
		}
		a, err := env.repos.Absences.CreateAbsence(ctx(), absence.Absence{
			FacilityID: env.conf.FacilityID,
			ChildName:  childName,
			GroupID:    groupID,
			Type:       typ,
			DateFrom:   from,
			DateTo:     to,
			Reason:     absence.ReasonIllness,
			Status:     absence.StatusNew,
			CreatedBy:  parent.ID,
			CreatedAt:  now.Add(-age),
			UpdatedAt:  now.Add(-age),
		})
		require.NoError(t, err)
		return a
	}
	mia := createAbsence("Mia", sonnen.ID, day(0), day(2), time.Hour)
	ben := createAbsence("Ben", monde.ID, day(-3), day(-1), 2*time.Hour)
	lea := createAbsence("Lea", sonnen.ID, day(1), day(1), 3*time.Hour)
	createAbsence("Ole", event.ID, day(0), day(0), 4*time.Hour)

	board := func(t *testing.T, token, query string) absence.TeamView {
		rec := env.run(t, httpTest{path: "/api/absences/team" + query, token: token, wantCode: http.StatusOK})
		var view absence.TeamView
		unmarshal(t, rec, &view)
		return view
	}
	status := func(t *testing.T, action string, a absence.Absence, wantCode int) {
		env.run(t, httpTest{method: http.MethodPost, path: "/api/absences/" + a.ID + "/" + action, token: token, wantCode: wantCode})
	}

	t.Run("staff only", func(t *testing.T) {
		env.run(t, httpTest{path: "/api/absences/team", token: env.token(t, parent), wantCode: http.StatusForbidden})
		env.run(t, httpTest{method: http.MethodPost, path: "/api/absences/" + mia.ID + "/read", token: env.token(t, parent), wantCode: http.StatusForbidden})
		env.run(t, httpTest{method: http.MethodPost, path: "/api/absences/nope/read", token: token, wantCode: http.StatusNotFound})
	})

	t.Run("everything is new", func(t *testing.T) {
		view := board(t, token, "")
		assert.Equal(t, []string{mia.ID, ben.ID, lea.ID}, absenceIDs(view.New), "event group absences are left out")
		assert.Empty(t, view.Read)
		assert.Equal(t, map[string]int{sonnen.ID: 2, monde.ID: 1}, view.UnreadByGroup)
		assert.Equal(t, 3, view.TotalUnread)
	})

	t.Run("group filter keeps the counters", func(t *testing.T) {
		view := board(t, token, "?group="+sonnen.ID)
		assert.Equal(t, []string{mia.ID, lea.ID}, absenceIDs(view.New))
		assert.Equal(t, 3, view.TotalUnread)
		assert.Equal(t, 1, view.UnreadByGroup[monde.ID])

		view = board(t, token, "?group=all")
		assert.Len(t, view.New, 3)
	})

	t.Run("read", func(t *testing.T) {
		status(t, "read", mia, http.StatusNoContent)
		status(t, "read", ben, http.StatusNoContent)

		view := board(t, token, "")
		assert.Equal(t, []string{lea.ID}, absenceIDs(view.New))
		assert.Equal(t, []string{mia.ID}, absenceIDs(view.Read), "read absences that are over disappear")
		assert.Equal(t, map[string]int{sonnen.ID: 1}, view.UnreadByGroup)
		assert.Equal(t, 1, view.TotalUnread)

		// read statuses are per user
		view = board(t, env.token(t, colleague), "")
		assert.Len(t, view.New, 3)
	})

	t.Run("unread", func(t *testing.T) {
		status(t, "unread", mia, http.StatusNoContent)
		view := board(t, token, "")
		assert.Equal(t, []string{mia.ID, lea.ID}, absenceIDs(view.New))
		assert.Empty(t, view.Read)

		// hidden absences stay hidden
		status(t, "unread", ben, http.StatusNoContent)
		assert.Len(t, board(t, token, "").New, 2)
	})

	t.Run("hide", func(t *testing.T) {
		status(t, "hide", lea, http.StatusNoContent)
		view := board(t, token, "")
		assert.Equal(t, []string{mia.ID}, absenceIDs(view.New))
		assert.Equal(t, 1, view.TotalUnread)
	})

	t.Run("hide expired for everyone", func(t *testing.T) {
		colleagueTk := env.token(t, colleague)
		env.run(t, httpTest{method: http.MethodPost, path: "/api/absences/" + ben.ID + "/read", token: colleagueTk, wantCode: http.StatusNoContent})

		hidden, err := env.svcs.Absence.HideExpired(ctx())
		require.NoError(t, err)
		assert.Equal(t, 1, hidden)

		view := board(t, colleagueTk, "")
		assert.Equal(t, []string{mia.ID, lea.ID}, absenceIDs(view.New))
	})
}

package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kita/apps/api/echo"
	"github.com/trezcool/kita/core/facility"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/user"
	"github.com/trezcool/kita/tests"
)

func Test_facilityApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)

	t.Run("defaults are public", func(t *testing.T) {
		env.run(t, httpTest{
			path: "/api/facility", wantCode: http.StatusOK,
			wantData: marchallObj(t, facility.Facility{
				ID:          env.conf.FacilityID,
				Name:        facility.DefaultName,
				DisplayName: facility.DefaultName,
			}),
		})
	})

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"name": " Kita Sonnenschein ", "email": "info@kita.de", "opening_hours": "7-17 Uhr"}`)
		env.run(t, httpTest{method: http.MethodPut, path: "/api/facility", body: body, wantCode: http.StatusUnauthorized})
		env.run(t, httpTest{method: http.MethodPut, path: "/api/facility", body: body, token: env.token(t, team), wantCode: http.StatusForbidden})
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/facility", body: []byte(`{"email": "nope"}`), token: env.token(t, admin),
			wantCode: http.StatusBadRequest,
		})

		want := marchallObj(t, facility.Facility{
			ID:           env.conf.FacilityID,
			Name:         "Kita Sonnenschein",
			DisplayName:  "Kita Sonnenschein",
			Email:        "info@kita.de",
			OpeningHours: "7-17 Uhr",
		})
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/facility", body: body, token: env.token(t, admin),
			wantCode: http.StatusOK, wantData: want,
		})
		env.run(t, httpTest{path: "/api/facility", wantCode: http.StatusOK, wantData: want})
	})

	t.Run("codes", func(t *testing.T) {
		env.run(t, httpTest{path: "/api/facility/codes", token: env.token(t, team), wantCode: http.StatusForbidden})
		env.run(t, httpTest{
			path: "/api/facility/codes", token: env.token(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, facility.DefaultCodes()),
		})
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/facility/codes", token: env.token(t, admin),
			body: []byte(`{"parent": "ELTERN", "team": " "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"team": "this field is required", "admin": "this field is required"}),
		})

		codes := facility.Codes{Parent: "ELTERN", Team: "TEAM", Admin: "CHEF"}
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/facility/codes", token: env.token(t, admin),
			body: marchallObj(t, codes), wantCode: http.StatusOK, wantData: marchallObj(t, codes),
		})

		// the old code no longer works
		reg := func(code string) []byte {
			return marchallObj(t, map[string]string{
				"email": "new@test.de", "password": "secret1", "name": "Neu", "role": user.RoleTeam, "code": code,
			})
		}
		env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/register", body: reg(facility.DefaultTeamCode),
			wantCode: http.StatusBadRequest,
		})
		env.run(t, httpTest{method: http.MethodPost, path: "/api/auth/register", body: reg("TEAM"), wantCode: http.StatusCreated})
	})
}

func Test_groupApi_list(t *testing.T) {
	env := setup(t)
	sonnen := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 2)
	monde := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Monde", "", 1)
	event, err := env.svcs.Group.EnsureEventGroup(ctx())
	require.NoError(t, err)

	rec := env.run(t, httpTest{path: "/api/groups", wantCode: http.StatusOK})
	var groups []GroupResponse
	unmarshal(t, rec, &groups)

	require.Len(t, groups, 3)
	assert.Equal(t, []string{event.ID, monde.ID, sonnen.ID}, []string{groups[0].ID, groups[1].ID, groups[2].ID})

	assert.Equal(t, group.Style{
		ChipClass:         "bg-stone-300 text-stone-800",
		HeaderExact:       "hsl(25, 30%, 89%)",
		HeaderApproxClass: "bg-stone-200",
		Icon:              "star",
	}, groups[0].Style)
	assert.Equal(t, group.Style{
		ChipClass:         "bg-slate-500 text-white",
		HeaderExact:       "hsl(215, 30%, 92%)",
		HeaderApproxClass: "bg-slate-100",
		Icon:              "star",
	}, groups[1].Style)
	assert.Equal(t, group.Style{
		ChipClass:         "bg-yellow-500 text-white",
		HeaderExact:       "hsl(54, 80%, 96%)",
		HeaderApproxClass: "bg-yellow-50",
		Icon:              "star",
	}, groups[2].Style)

	t.Run("retrieve", func(t *testing.T) {
		usr := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
		env.run(t, httpTest{path: "/api/groups/" + sonnen.ID, wantCode: http.StatusUnauthorized})
		env.run(t, httpTest{
			path: "/api/groups/" + sonnen.ID, token: env.token(t, usr), wantCode: http.StatusOK,
			wantData: marchallObj(t, GroupResponse{Group: sonnen, Style: group.StyleOf(sonnen)}),
		})
		env.run(t, httpTest{
			path: "/api/groups/nope", token: env.token(t, usr), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "group not found"}),
		})
	})
}

func Test_groupApi_manage(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	token := env.token(t, admin)
	event, err := env.svcs.Group.EnsureEventGroup(ctx())
	require.NoError(t, err)

	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/groups", token: env.token(t, team), wantCode: http.StatusForbidden,
		body: []byte(`{"name": "Sterne"}`),
	})
	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/groups", token: token, wantCode: http.StatusBadRequest,
		body: []byte(`{"name": " "}`), wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
	})

	rec := env.run(t, httpTest{
		method: http.MethodPost, path: "/api/groups", token: token, wantCode: http.StatusCreated,
		body: []byte(`{"name": "Wasser", "color": "bg-sky-500", "icon": "Water"}`),
	})
	var wasser GroupResponse
	unmarshal(t, rec, &wasser)
	assert.Equal(t, "water", wasser.Icon)
	assert.Equal(t, "droplets", wasser.Style.Icon, "legacy icon names are mapped")
	require.NotNil(t, wasser.Position)
	assert.Equal(t, 1, *wasser.Position, "new groups go last")

	rec = env.run(t, httpTest{
		method: http.MethodPost, path: "/api/groups", token: token, wantCode: http.StatusCreated,
		body: []byte(`{"name": "Erde"}`),
	})
	var erde GroupResponse
	unmarshal(t, rec, &erde)

	t.Run("update", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPut, path: "/api/groups/" + wasser.ID, token: token, wantCode: http.StatusOK,
			body: []byte(`{"name": "Meer", "icon": ""}`),
		})
		var grp GroupResponse
		unmarshal(t, rec, &grp)
		assert.Equal(t, "Meer", grp.Name)
		assert.Equal(t, "bg-sky-500", grp.Color)
		assert.Equal(t, group.DefaultIcon, grp.Style.Icon)

		env.run(t, httpTest{method: http.MethodPut, path: "/api/groups/nope", token: token, body: []byte(`{}`), wantCode: http.StatusNotFound})
	})

	t.Run("reorder", func(t *testing.T) {
		incomplete := marchallObj(t, httpErr{Error: group.ErrReorderIncomplete.Error()})
		tests := []httpTest{
			{name: "empty", body: []byte(`{"ids": []}`), wantCode: http.StatusBadRequest},
			{name: "missing group", body: marchallObj(t, group.Reorder{IDs: []string{event.ID, erde.ID}}), wantCode: http.StatusBadRequest, wantData: incomplete},
			{name: "duplicate", body: marchallObj(t, group.Reorder{IDs: []string{event.ID, erde.ID, erde.ID}}), wantCode: http.StatusBadRequest, wantData: incomplete},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPut
				tt.path = "/api/groups/order"
				tt.token = token
				env.run(t, tt)
			})
		}

		rec := env.run(t, httpTest{
			method: http.MethodPut, path: "/api/groups/order", token: token, wantCode: http.StatusOK,
			body: marchallObj(t, group.Reorder{IDs: []string{event.ID, erde.ID, wasser.ID}}),
		})
		var groups []GroupResponse
		unmarshal(t, rec, &groups)
		require.Len(t, groups, 3)
		assert.Equal(t, []string{event.ID, erde.ID, wasser.ID}, []string{groups[0].ID, groups[1].ID, groups[2].ID})
	})

	t.Run("delete", func(t *testing.T) {
		env.run(t, httpTest{
			method: http.MethodDelete, path: "/api/groups/" + event.ID, token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: group.ErrDeleteEventGroup.Error()}),
		})
		env.run(t, httpTest{method: http.MethodDelete, path: "/api/groups/" + erde.ID, token: env.token(t, team), wantCode: http.StatusForbidden})
		env.run(t, httpTest{method: http.MethodDelete, path: "/api/groups/" + erde.ID, token: token, wantCode: http.StatusNoContent})
		env.run(t, httpTest{method: http.MethodDelete, path: "/api/groups/" + erde.ID, token: token, wantCode: http.StatusNotFound})
	})
}

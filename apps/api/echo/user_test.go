package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kita/apps/api/echo"
	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
	emailsvc "github.com/trezcool/kita/services/email"
	"github.com/trezcool/kita/tests"
)

func Test_meApi(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	_, parent = testutil.CreateChild(t, env.repos.Users, parent, "Mia", grp.ID, "2020-05-17")
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)

	t.Run("auth required", func(t *testing.T) {
		env.run(t, httpTest{path: "/api/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)})
	})

	t.Run("retrieve with children", func(t *testing.T) {
		rec := env.run(t, httpTest{path: "/api/me", token: env.token(t, parent), wantCode: http.StatusOK})
		var me user.User
		unmarshal(t, rec, &me)

		assert.Equal(t, parent.ID, me.ID)
		require.Len(t, me.Children, 1)
		assert.Equal(t, "Mia", me.Children[0].FirstName)
	})

	t.Run("update profile", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPut, path: "/api/me", token: env.token(t, parent), wantCode: http.StatusOK,
			body: []byte(`{"full_name": " Anna Schmidt "}`),
		})
		var me user.User
		unmarshal(t, rec, &me)
		assert.Equal(t, "Anna Schmidt", me.FullName)
		assert.Len(t, me.Children, 1)
	})

	t.Run("parents have no primary group", func(t *testing.T) {
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/me", token: env.token(t, parent), wantCode: http.StatusForbidden,
			body:     marchallObj(t, map[string]string{"primary_group": grp.ID}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		})
	})

	t.Run("team primary group", func(t *testing.T) {
		env.run(t, httpTest{
			method: http.MethodPut, path: "/api/me", token: env.token(t, team), wantCode: http.StatusBadRequest,
			body:     []byte(`{"primary_group": "nope"}`),
			wantData: marchallObj(t, map[string]string{"primary_group": "unknown group"}),
		})
		rec := env.run(t, httpTest{
			method: http.MethodPut, path: "/api/me", token: env.token(t, team), wantCode: http.StatusOK,
			body: marchallObj(t, map[string]string{"primary_group": grp.ID}),
		})
		var me user.User
		unmarshal(t, rec, &me)
		assert.Equal(t, grp.ID, me.PrimaryGroup)
	})

	t.Run("change password", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "mismatch", body: []byte(`{"password": "secret1", "password_confirm": "secret2"}`),
				wantCode: http.StatusBadRequest,
			},
			{
				name: "success", body: []byte(`{"password": "secret1", "password_confirm": "secret1"}`),
				wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Password has been changed."}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPut
				tt.path = "/api/me/password"
				tt.token = env.token(t, team)
				env.run(t, tt)
			})
		}

		usr, err := env.svcs.User.GetByID(ctx(), team.ID)
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("secret1"))
	})
}

func Test_meApi_birthdays(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	other := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Monde", "bg-blue-500", 2)
	today := "2020-" + core.Today().Format("01-02")

	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	testutil.CreateChild(t, env.repos.Users, parent, "Mia", grp.ID, today)
	testutil.CreateChild(t, env.repos.Users, parent, "Ben", grp.ID, "")
	testutil.CreateChild(t, env.repos.Users, parent, "Lea", other.ID, today)

	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	team.PrimaryGroup = grp.ID
	team, err := env.repos.Users.UpdateUser(ctx(), team)
	require.NoError(t, err)
	teamNoGroup := env.createUser(t, "Tim", "tim@test.de", user.RoleTeam)

	t.Run("primary group only", func(t *testing.T) {
		rec := env.run(t, httpTest{path: "/api/me/birthdays", token: env.token(t, team), wantCode: http.StatusOK})
		var children []user.Child
		unmarshal(t, rec, &children)
		require.Len(t, children, 1)
		assert.Equal(t, "Mia", children[0].FirstName)
	})

	t.Run("without primary group", func(t *testing.T) {
		env.run(t, httpTest{
			path: "/api/me/birthdays", token: env.token(t, teamNoGroup), wantCode: http.StatusOK,
			wantData: marchallList(t),
		})
	})

	t.Run("parents see nothing", func(t *testing.T) {
		env.run(t, httpTest{
			path: "/api/me/birthdays", token: env.token(t, parent), wantCode: http.StatusOK,
			wantData: marchallList(t),
		})
	})
}

func Test_meApi_children(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	mia, parent := testutil.CreateChild(t, env.repos.Users, parent, "Mia", grp.ID, "")
	stranger := env.createUser(t, "Eva", "eva@test.de", user.RoleParent)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	token := env.token(t, parent)

	t.Run("list", func(t *testing.T) {
		rec := env.run(t, httpTest{path: "/api/me/children", token: token, wantCode: http.StatusOK})
		var children []user.Child
		unmarshal(t, rec, &children)
		require.Len(t, children, 1)
		assert.Equal(t, mia.ID, children[0].ID)

		env.run(t, httpTest{path: "/api/me/children", token: env.token(t, team), wantCode: http.StatusOK, wantData: marchallList(t)})
	})

	t.Run("add", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "required fields", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{
					"first_name": "this field is required",
					"group_id":   "this field is required",
				}),
			},
			{
				name: "unknown group", token: token, body: []byte(`{"first_name": "Ben", "group_id": "nope"}`),
				wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"group_id": "unknown group"}),
			},
			{
				name: "parents only", token: env.token(t, team), wantCode: http.StatusForbidden,
				body: marchallObj(t, map[string]string{"first_name": "Ben", "group_id": grp.ID}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPost
				tt.path = "/api/me/children"
				env.run(t, tt)
			})
		}

		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/me/children", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, map[string]string{"first_name": " Ben ", "group_id": grp.ID, "birthday": "2021-01-02"}),
		})
		var ben user.Child
		unmarshal(t, rec, &ben)
		assert.NotEmpty(t, ben.ID)
		assert.Equal(t, "Ben", ben.FirstName)
		assert.Equal(t, parent.ID, ben.UserID)

		children, err := env.svcs.User.ListChildren(ctx(), parent.ID)
		require.NoError(t, err)
		assert.Len(t, children, 2)
	})

	t.Run("update", func(t *testing.T) {
		path := "/api/me/children/" + mia.ID
		env.run(t, httpTest{
			method: http.MethodPut, path: path, token: env.token(t, stranger), wantCode: http.StatusNotFound,
			body: []byte(`{"notes": "hi"}`), wantData: marchallObj(t, httpErr{Error: "child not found"}),
		})
		env.run(t, httpTest{
			method: http.MethodPut, path: path, token: token, wantCode: http.StatusBadRequest,
			body: []byte(`{"birthday": "17.05.2020"}`),
		})

		rec := env.run(t, httpTest{
			method: http.MethodPut, path: path, token: token, wantCode: http.StatusOK,
			body: []byte(`{"first_name": "Mia Sophie", "notes": " Allergie: Nüsse "}`),
		})
		var child user.Child
		unmarshal(t, rec, &child)
		assert.Equal(t, "Mia Sophie", child.FirstName)
		assert.Equal(t, "Allergie: Nüsse", child.Notes)
		assert.Equal(t, grp.ID, child.GroupID)

		// admins may edit every child
		env.run(t, httpTest{
			method: http.MethodPut, path: path, token: env.token(t, admin), wantCode: http.StatusOK,
			body: []byte(`{"notes": ""}`),
		})
	})

	t.Run("delete", func(t *testing.T) {
		path := "/api/me/children/" + mia.ID
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: env.token(t, stranger), wantCode: http.StatusNotFound})
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNoContent})
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNotFound})
	})
}

func Test_meApi_deleteAccount(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	mia, parent := testutil.CreateChild(t, env.repos.Users, parent, "Mia", grp.ID, "")
	token := env.token(t, parent)

	env.run(t, httpTest{method: http.MethodDelete, path: "/api/me", token: token, wantCode: http.StatusNoContent})

	_, err := env.svcs.User.GetByID(ctx(), parent.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = env.svcs.User.GetChild(ctx(), mia.ID)
	assert.True(t, core.IsNotFound(err))

	// the token of a deleted account is worthless
	env.run(t, httpTest{path: "/api/me", token: token, wantCode: http.StatusUnauthorized})
}

func Test_userApi_permissions(t *testing.T) {
	env := setup(t)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	for _, path := range []string{"/api/users", "/api/users/roles", "/api/users/" + parent.ID} {
		t.Run(path, func(t *testing.T) {
			env.run(t, httpTest{path: path, wantCode: http.StatusUnauthorized})
			env.run(t, httpTest{path: path, token: env.token(t, parent), wantCode: http.StatusForbidden, wantData: forbidden})
			env.run(t, httpTest{path: path, token: env.token(t, team), wantCode: http.StatusForbidden, wantData: forbidden})
		})
	}
}

func Test_userApi_query(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	admin := env.createUser(t, "Zoe Admin", "zoe@test.de", user.RoleAdmin)
	anna := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	testutil.CreateChild(t, env.repos.Users, anna, "Mia", grp.ID, "")
	tom := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	gone := testutil.CreateUser(t, env.repos.Users, env.conf, "Bob", "bob@test.de", "", user.RoleParent, false)
	token := env.token(t, admin)

	ids := func(t *testing.T, path string) []string {
		rec := env.run(t, httpTest{path: path, token: token, wantCode: http.StatusOK})
		var users []user.User
		unmarshal(t, rec, &users)
		res := make([]string, 0, len(users))
		for _, u := range users {
			res = append(res, u.ID)
		}
		return res
	}

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "all by name", path: "/api/users", want: []string{anna.ID, gone.ID, tom.ID, admin.ID}},
		{name: "ordering", path: "/api/users?ordering=-email", want: []string{admin.ID, tom.ID, gone.ID, anna.ID}},
		{name: "search", path: "/api/users?search=TOM", want: []string{tom.ID}},
		{name: "roles", path: "/api/users?role=team&role=admin", want: []string{tom.ID, admin.ID}},
		{name: "inactive", path: "/api/users?is_active=false", want: []string{gone.ID}},
		{name: "by group of children", path: "/api/users?group=" + grp.ID, want: []string{anna.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(t, tt.path))
		})
	}

	t.Run("roles", func(t *testing.T) {
		env.run(t, httpTest{
			path: "/api/users/roles", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
		})
	})

	t.Run("retrieve", func(t *testing.T) {
		rec := env.run(t, httpTest{path: "/api/users/" + anna.ID, token: token, wantCode: http.StatusOK})
		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, "anna@test.de", usr.Email)
		assert.Len(t, usr.Children, 1)

		env.run(t, httpTest{
			path: "/api/users/nope", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		})
	})
}

func Test_userApi_create(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	token := env.token(t, admin)

	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":     "this field is required",
				"full_name": "this field is required",
				"role":      "this field is required",
			}),
		},
		{
			name: "email taken", body: []byte(`{"email": "ADA@test.de", "full_name": "Ada", "role": "team"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "unknown group", body: []byte(`{"email": "tom@test.de", "full_name": "Tom", "role": "team", "primary_group": "x"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"primary_group": "unknown group"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/users"
			tt.token = token
			env.run(t, tt)
		})
	}

	t.Run("success", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/users", token: token, wantCode: http.StatusCreated,
			body: []byte(`{"email": " Tom@Test.de", "full_name": "Tom", "role": "TEAM"}`),
		})
		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, "tom@test.de", usr.Email)
		assert.Equal(t, user.RoleTeam, usr.Role)
		assert.True(t, usr.MustResetPassword)
		assert.True(t, usr.IsActive)

		// the temporary password is mailed to the new user
		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "welcome", msg.TemplateName)
		assert.Equal(t, "tom@test.de", msg.To[0].Address)
		data := msg.TemplateData.(map[string]string)
		require.Len(t, data["Password"], 12)

		rec = env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/login", wantCode: http.StatusOK,
			body: marchallObj(t, LoginRequest{Email: "tom@test.de", Password: data["Password"]}),
		})
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.True(t, resp.MustResetPassword)
	})
}

func Test_userApi_update(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	tom := env.createUser(t, "Tom", "tom@test.de", user.RoleParent)
	token := env.token(t, admin)
	path := "/api/users/" + tom.ID

	env.run(t, httpTest{
		method: http.MethodPut, path: "/api/users/nope", token: token, body: []byte(`{}`), wantCode: http.StatusNotFound,
	})
	env.run(t, httpTest{
		method: http.MethodPut, path: path, token: token, body: []byte(`{"role": "boss"}`), wantCode: http.StatusBadRequest,
	})

	rec := env.run(t, httpTest{
		method: http.MethodPut, path: path, token: token, wantCode: http.StatusOK,
		body: marchallObj(t, map[string]interface{}{"role": "team", "primary_group": grp.ID, "is_active": false}),
	})
	var usr user.User
	unmarshal(t, rec, &usr)
	assert.Equal(t, "Tom", usr.FullName)
	assert.Equal(t, user.RoleTeam, usr.Role)
	assert.Equal(t, grp.ID, usr.PrimaryGroup)
	assert.False(t, usr.IsActive)

	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/auth/login", wantCode: http.StatusForbidden,
		body: marchallObj(t, LoginRequest{Email: "tom@test.de", Password: "Passw0rd!"}),
	})
}

func Test_userApi_delete(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	admin := env.createUser(t, "Ada", "ada@test.de", user.RoleAdmin)
	anna := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	mia, _ := testutil.CreateChild(t, env.repos.Users, anna, "Mia", grp.ID, "")
	tom := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	eva := env.createUser(t, "Eva", "eva@test.de", user.RoleTeam)
	token := env.token(t, admin)
	deleteSelf := marchallObj(t, httpErr{Error: user.ErrDeleteSelf.Error()})

	tests := []httpTest{
		{name: "self", path: "/api/users/" + admin.ID, wantCode: http.StatusBadRequest, wantData: deleteSelf},
		{name: "self among others", path: "/api/users?id=" + tom.ID + "&id=" + admin.ID, wantCode: http.StatusBadRequest, wantData: deleteSelf},
		{name: "unknown", path: "/api/users/nope", wantCode: http.StatusNotFound},
		{name: "no ids", path: "/api/users", wantCode: http.StatusNoContent},
		{name: "one", path: "/api/users/" + anna.ID, wantCode: http.StatusNoContent},
		{name: "many", path: "/api/users?id=" + tom.ID + "&id=" + eva.ID, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodDelete
			tt.token = token
			env.run(t, tt)
		})
	}

	users, err := env.svcs.User.Query(ctx(), nil, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)

	_, err = env.svcs.User.GetChild(ctx(), mia.ID)
	assert.True(t, core.IsNotFound(err), "children are deleted with their parent")
}

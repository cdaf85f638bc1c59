package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kita/apps/api/echo"
	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/facility"
	"github.com/trezcool/kita/core/user"
	emailsvc "github.com/trezcool/kita/services/email"
	"github.com/trezcool/kita/tests"
)

func Test_authApi_register(t *testing.T) {
	env := setup(t)
	grp := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	env.createUser(t, "Taken", "taken@test.de", user.RoleParent)

	registration := func(email, role, code string, children ...map[string]string) []byte {
		data := map[string]interface{}{
			"email":    email,
			"password": "secret1",
			"name":     "  Anna Schmidt ",
			"role":     role,
			"code":     code,
		}
		if children != nil {
			data["children"] = children
		}
		return marchallObj(t, data)
	}
	mia := map[string]string{"first_name": "Mia", "group_id": grp.ID, "birthday": "2020-05-17"}

	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
				"name":     "this field is required",
				"role":     "this field is required",
				"code":     "this field is required",
			}),
		},
		{
			name: "wrong code", body: registration("anna@test.de", user.RoleParent, "WRONG", mia),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": user.ErrInvalidCode.Error()}),
		},
		{
			name: "code of another role", body: registration("anna@test.de", user.RoleTeam, facility.DefaultParentCode),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": user.ErrInvalidCode.Error()}),
		},
		{
			name: "parent without children", body: registration("anna@test.de", user.RoleParent, facility.DefaultParentCode),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"children": "at least one child is required"}),
		},
		{
			name: "unknown group", wantCode: http.StatusBadRequest,
			body: registration("anna@test.de", user.RoleParent, facility.DefaultParentCode, map[string]string{
				"first_name": "Mia", "group_id": "nope",
			}),
			wantData: marchallObj(t, map[string]string{"children": "unknown group"}),
		},
		{
			name: "email taken", body: registration(" TAKEN@test.de", user.RoleParent, facility.DefaultParentCode, mia),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/auth/register"
			env.run(t, tt)
		})
	}

	t.Run("parent", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/register", wantCode: http.StatusCreated,
			body: registration("Anna@Test.de", user.RoleParent, " "+facility.DefaultParentCode+" ", mia),
		})
		var resp LoginResponse
		unmarshal(t, rec, &resp)

		assert.NotEmpty(t, resp.Token)
		assert.False(t, resp.MustResetPassword)
		require.NotNil(t, resp.User)
		assert.Equal(t, "anna@test.de", resp.User.Email)
		assert.Equal(t, "Anna Schmidt", resp.User.FullName)
		assert.Equal(t, user.RoleParent, resp.User.Role)
		assert.Equal(t, "", resp.User.PrimaryGroup)
		require.Len(t, resp.User.Children, 1)
		assert.Equal(t, "Mia", resp.User.Children[0].FirstName)
		assert.Equal(t, grp.ID, resp.User.Children[0].GroupID)
		assert.Equal(t, "2020-05-17", resp.User.Children[0].Birthday)

		// the token is usable right away
		env.run(t, httpTest{path: "/api/me", token: resp.Token, wantCode: http.StatusOK})
	})

	t.Run("team member gets a primary group", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/register", wantCode: http.StatusCreated,
			body: registration("tom@test.de", user.RoleTeam, facility.DefaultTeamCode, mia),
		})
		var resp LoginResponse
		unmarshal(t, rec, &resp)

		require.NotNil(t, resp.User)
		assert.Equal(t, grp.ID, resp.User.PrimaryGroup)
		assert.Empty(t, resp.User.Children)
	})
}

func Test_authApi_login(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	testutil.CreateUser(t, env.repos.Users, env.conf, "Gone", "gone@test.de", "Passw0rd!", user.RoleParent, false)

	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}
	invalidCreds := marchallObj(t, httpErr{Error: "invalid credentials"})

	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown email", body: login("nobody@test.de", "Passw0rd!"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{name: "wrong password", body: login("anna@test.de", "passw0rd!"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{
			name: "deactivated", body: login("gone@test.de", "Passw0rd!"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/auth/login"
			env.run(t, tt)
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/login", body: login(" ANNA@test.de ", "Passw0rd!"),
			wantCode: http.StatusOK,
		})
		var resp LoginResponse
		unmarshal(t, rec, &resp)

		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, usr.ID, resp.User.ID)
		assert.False(t, resp.User.LastLogin.IsZero(), "last login is recorded")
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)

	oldToken, err := GenerateToken(env.conf, GetUserClaims(env.conf, usr, core.NowFunc().Add(-31*24*time.Hour).Unix()))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "refresh expired", token: oldToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "success", token: env.token(t, usr), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/auth/token-refresh"
			env.run(t, tt)
		})
	}
}

func Test_authApi_forceReset(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Tom Temp", "tom@test.de", user.RoleTeam)
	usr.MustResetPassword = true
	usr, err := env.repos.Users.UpdateUser(ctx(), usr)
	require.NoError(t, err)
	token := env.token(t, usr)

	// everything else is locked until the temporary password is replaced
	env.run(t, httpTest{
		path: "/api/me", token: token, wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "password reset required"}),
	})

	reset := func(pwd, confirm string) []byte {
		return marchallObj(t, map[string]string{"password": pwd, "password_confirm": confirm})
	}
	tests := []httpTest{
		{
			name: "too short", body: reset("Ab1", "Ab1"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "too simple", body: reset("abcdefgh", "abcdefgh"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character and 1 digit",
			}),
		},
		{name: "mismatch", body: reset("Kita2024Secure", "Kita2024Secur"), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/auth/force-reset"
			tt.token = token
			env.run(t, tt)
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/force-reset", token: token,
			body: reset("Kita2024Secure", "Kita2024Secure"), wantCode: http.StatusOK,
		})
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.False(t, resp.MustResetPassword)

		env.run(t, httpTest{path: "/api/me", token: resp.Token, wantCode: http.StatusOK})
		env.run(t, httpTest{
			method: http.MethodPost, path: "/api/auth/login", wantCode: http.StatusOK,
			body: marchallObj(t, LoginRequest{Email: "tom@test.de", Password: "Kita2024Secure"}),
		})
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Anna", "anna@test.de", user.RoleParent)

	success := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
	env.run(t, httpTest{
		name: "unknown email", method: http.MethodPost, path: "/api/auth/password-reset",
		body: marchallObj(t, PasswordResetRequest{Email: "nobody@test.de"}), wantCode: http.StatusOK, wantData: success,
	})
	env.run(t, httpTest{
		name: "invalid email", method: http.MethodPost, path: "/api/auth/password-reset",
		body: marchallObj(t, PasswordResetRequest{Email: "nobody"}), wantCode: http.StatusBadRequest,
	})
	require.Empty(t, emailsvc.SentMessages)

	env.run(t, httpTest{
		name: "known email", method: http.MethodPost, path: "/api/auth/password-reset",
		body: marchallObj(t, PasswordResetRequest{Email: "anna@test.de"}), wantCode: http.StatusOK, wantData: success,
	})
	require.Len(t, emailsvc.SentMessages, 1)
	data, ok := emailsvc.SentMessages[0].TemplateData.(map[string]string)
	require.True(t, ok)

	confirm := func(token string) []byte {
		return marchallObj(t, user.ResetUserPassword{
			UID: data["UID"], Token: token, Password: "newsecret", PasswordConfirm: "newsecret",
		})
	}
	env.run(t, httpTest{
		name: "invalid token", method: http.MethodPost, path: "/api/auth/password-reset-confirm",
		body: confirm("abc-def"), wantCode: http.StatusBadRequest,
	})
	env.run(t, httpTest{
		name: "valid token", method: http.MethodPost, path: "/api/auth/password-reset-confirm",
		body: confirm(data["Token"]), wantCode: http.StatusOK,
		wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
	})
	env.run(t, httpTest{
		name: "login with the new password", method: http.MethodPost, path: "/api/auth/login",
		body: marchallObj(t, LoginRequest{Email: "anna@test.de", Password: "newsecret"}), wantCode: http.StatusOK,
	})
}

func TestRateLimit(t *testing.T) {
	env := setup(t, func(conf *core.Config) {
		conf.Server.RateLimit = 0.001
		conf.Server.RateBurst = 2
	})
	body := marchallObj(t, LoginRequest{Email: "nobody@test.de", Password: "secret"})

	for i := 0; i < 2; i++ {
		env.run(t, httpTest{method: http.MethodPost, path: "/api/auth/login", body: body, wantCode: http.StatusBadRequest})
	}
	env.run(t, httpTest{
		method: http.MethodPost, path: "/api/auth/login", body: body, wantCode: http.StatusTooManyRequests,
		wantData: marchallObj(t, httpErr{Error: "too many requests"}),
	})

	// other routes are not limited
	env.run(t, httpTest{path: "/api/groups", wantCode: http.StatusOK})
}

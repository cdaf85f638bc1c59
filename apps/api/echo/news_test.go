package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/news"
	"github.com/trezcool/kita/core/user"
	pushsvc "github.com/trezcool/kita/services/push"
	"github.com/trezcool/kita/tests"
)

func newsIDs(items []news.News) []string {
	ids := make([]string, 0, len(items))
	for _, n := range items {
		ids = append(ids, n.ID)
	}
	return ids
}

func Test_newsApi_create(t *testing.T) {
	env := setup(t)
	sonnen := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)
	token := env.token(t, team)

	tests := []httpTest{
		{name: "auth required", body: []byte(`{"text": "hi"}`), wantCode: http.StatusUnauthorized},
		{name: "staff only", token: env.token(t, parent), body: []byte(`{"text": "hi"}`), wantCode: http.StatusForbidden},
		{
			name: "empty text", token: token, body: []byte(`{"text": "<p> </p>"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"text": "this field is required"}),
		},
		{
			name: "group target without group", token: token, body: []byte(`{"text": "hi", "target": "group"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"group_id": "this field is required"}),
		},
		{
			name: "unknown target", token: token, body: []byte(`{"text": "hi", "target": "parents"}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/news"
			env.run(t, tt)
		})
	}
	require.Empty(t, pushsvc.SentMessages)

	t.Run("everyone", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/news", token: token, wantCode: http.StatusCreated,
			body: []byte(`{"text": "<h2>Sommerfest</h2><p>Am Samstag   feiern wir!</p>"}`),
		})
		var n news.News
		unmarshal(t, rec, &n)
		assert.Equal(t, news.TargetAll, n.Target)
		assert.Nil(t, n.GroupID)
		assert.Equal(t, team.ID, n.CreatedBy)
		assert.Equal(t, []news.Attachment{}, n.Attachments)

		msg, ok := pushsvc.LastMessage()
		require.True(t, ok)
		assert.Equal(t, core.PushMessage{
			Title:    "Sommerfest",
			Body:     "Sommerfest Am Samstag feiern wir!",
			Category: core.PushCategoryNews,
			Data:     map[string]string{"type": "news", "newsId": n.ID},
		}, msg)
	})

	t.Run("group", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/news", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, map[string]interface{}{
				"title":       " Ausflug ",
				"text":        "<p>Wir gehen in den Zoo.</p>",
				"group_id":    sonnen.ID,
				"attachments": []news.Attachment{{Name: "plan.pdf", URL: "https://files.test/plan.pdf", Type: "application/pdf", Size: 42}},
			}),
		})
		var n news.News
		unmarshal(t, rec, &n)
		assert.Equal(t, news.TargetGroup, n.Target)
		require.NotNil(t, n.GroupID)
		assert.Equal(t, sonnen.ID, *n.GroupID)
		assert.Len(t, n.Attachments, 1)

		msg, ok := pushsvc.LastMessage()
		require.True(t, ok)
		assert.Equal(t, "Ausflug", msg.Title)
		assert.Equal(t, []string{sonnen.ID}, msg.GroupIDs)
	})

	t.Run("target all drops the group", func(t *testing.T) {
		rec := env.run(t, httpTest{
			method: http.MethodPost, path: "/api/news", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, map[string]string{"text": "hi", "target": "all", "group_id": sonnen.ID}),
		})
		var n news.News
		unmarshal(t, rec, &n)
		assert.Nil(t, n.GroupID)
	})
}

func Test_newsApi_feed(t *testing.T) {
	env := setup(t)
	sonnen := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Sonnen", "bg-yellow-500", 1)
	monde := testutil.CreateGroup(t, env.repos.Groups, env.conf, "Monde", "bg-blue-500", 2)
	parent := env.createUser(t, "Anna", "anna@test.de", user.RoleParent)
	_, parent = testutil.CreateChild(t, env.repos.Users, parent, "Mia", sonnen.ID, "")
	team := env.createUser(t, "Tom", "tom@test.de", user.RoleTeam)

	now := time.Now().UTC()
	createNews := func(text string, groupID *string, age time.Duration) news.News {
		target := news.TargetAll
		if groupID != nil {
			target = news.TargetGroup
		}
		n, err := env.repos.News.CreateNews(ctx(), news.News{
			FacilityID:  env.conf.FacilityID,
			Text:        text,
			GroupID:     groupID,
			Target:      target,
			Attachments: []news.Attachment{},
			CreatedBy:   team.ID,
			CreatedAt:   now.Add(-age),
		})
		require.NoError(t, err)
		return n
	}
	forAll := createNews("<p>Alle</p>", nil, 3*time.Hour)
	forSonnen := createNews("<p>Sonnen</p>", &sonnen.ID, 2*time.Hour)
	forMonde := createNews("<p>Monde</p>", &monde.ID, time.Hour)

	feed := func(t *testing.T, usr user.User, query string) []string {
		rec := env.run(t, httpTest{path: "/api/news" + query, token: env.token(t, usr), wantCode: http.StatusOK})
		var items []news.News
		unmarshal(t, rec, &items)
		return newsIDs(items)
	}

	t.Run("parents see their groups", func(t *testing.T) {
		assert.Equal(t, []string{forSonnen.ID, forAll.ID}, feed(t, parent, ""))
		assert.Equal(t, []string{forSonnen.ID, forAll.ID}, feed(t, parent, "?group="+monde.ID), "filter is ignored")
	})

	t.Run("staff see everything", func(t *testing.T) {
		assert.Equal(t, []string{forMonde.ID, forSonnen.ID, forAll.ID}, feed(t, team, ""))
		assert.Equal(t, []string{forMonde.ID, forSonnen.ID, forAll.ID}, feed(t, team, "?group=all"))
		assert.Equal(t, []string{forMonde.ID}, feed(t, team, "?group="+monde.ID))
	})

	t.Run("retrieve", func(t *testing.T) {
		env.run(t, httpTest{path: "/api/news/" + forSonnen.ID, token: env.token(t, parent), wantCode: http.StatusOK})
		env.run(t, httpTest{
			path: "/api/news/" + forMonde.ID, token: env.token(t, parent), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "news not found"}),
		})
		env.run(t, httpTest{path: "/api/news/" + forMonde.ID, token: env.token(t, team), wantCode: http.StatusOK})
	})

	t.Run("hide", func(t *testing.T) {
		env.run(t, httpTest{method: http.MethodPost, path: "/api/news/nope/hide", token: env.token(t, parent), wantCode: http.StatusNotFound})
		env.run(t, httpTest{
			method: http.MethodPost, path: "/api/news/" + forMonde.ID + "/hide", token: env.token(t, parent), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "news not found"}),
		})
		env.run(t, httpTest{method: http.MethodPost, path: "/api/news/" + forAll.ID + "/hide", token: env.token(t, parent), wantCode: http.StatusNoContent})

		assert.Equal(t, []string{forSonnen.ID}, feed(t, parent, ""))
		assert.Equal(t, []string{forMonde.ID, forSonnen.ID, forAll.ID}, feed(t, team, ""), "hidden for the parent only")
	})

	t.Run("delete", func(t *testing.T) {
		path := "/api/news/" + forSonnen.ID
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: env.token(t, parent), wantCode: http.StatusForbidden})
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: env.token(t, team), wantCode: http.StatusNoContent})
		env.run(t, httpTest{method: http.MethodDelete, path: path, token: env.token(t, team), wantCode: http.StatusNotFound})
		assert.Empty(t, feed(t, parent, ""))
	})
}

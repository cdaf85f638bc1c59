package pushsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
)

func TestFunctionService_Send(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantSent int
		wantErr  bool
		errMsg   string
	}{
		{name: "delivered", status: http.StatusOK, response: `{"success": true, "sent": 3}`, wantSent: 3},
		{name: "function failure", status: http.StatusOK, response: `{"success": false, "error": "no subscriptions"}`, wantErr: true},
		{name: "http error", status: http.StatusInternalServerError, response: "boom\n", wantErr: true, errMsg: "push function: status 500: boom"},
		{name: "invalid body", status: http.StatusOK, response: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotPath string
				gotKey  string
				gotAuth string
				gotMsg  map[string]interface{}
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotKey = r.Header.Get("apikey")
				gotAuth = r.Header.Get("Authorization")
				_ = json.NewDecoder(r.Body).Decode(&gotMsg)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			svc, err := NewFunctionService(core.PushConfig{
				URL:      srv.URL + "/",
				APIKey:   "anon-key",
				Function: "send-push-notification",
				Timeout:  time.Second,
			})
			require.NoError(t, err)

			sent, err := svc.Send(context.Background(), core.PushMessage{
				Title:    "Neue Abstimmung",
				Body:     "Ausflug (Sonne)",
				Category: core.PushCategoryLists,
				GroupIDs: []string{"sonne"},
			})
			if tt.wantErr {
				assert.Error(t, err)
				_, hasStack := err.(interface{ StackTrace() errors.StackTrace })
				assert.True(t, hasStack, "errors carry a stack trace")
				if tt.errMsg != "" {
					assert.EqualError(t, err, tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantSent, sent)

			assert.Equal(t, "/functions/v1/send-push-notification", gotPath)
			assert.Equal(t, "anon-key", gotKey)
			assert.Equal(t, "Bearer anon-key", gotAuth)
			assert.Equal(t, "lists", gotMsg["category"])
			assert.Equal(t, []interface{}{"sonne"}, gotMsg["groupIds"])
			assert.Nil(t, gotMsg["userIds"])
			assert.Equal(t, map[string]interface{}{}, gotMsg["data"])
		})
	}
}

func TestNewFunctionService_RequiresConfig(t *testing.T) {
	_, err := NewFunctionService(core.PushConfig{APIKey: "k"})
	assert.Error(t, err)
	_, err = NewFunctionService(core.PushConfig{URL: "http://localhost"})
	assert.Error(t, err)
}

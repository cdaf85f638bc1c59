package pushsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
)

// functionService invokes the push notification edge function of a Supabase project.
type functionService struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ core.PushService = (*functionService)(nil)

type functionResponse struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Error   string `json:"error"`
}

func NewFunctionService(conf core.PushConfig) (*functionService, error) {
	if conf.URL == "" {
		return nil, errors.New("push url is required")
	}
	if conf.APIKey == "" {
		return nil, errors.New("push api key is required")
	}
	return &functionService{
		endpoint: strings.TrimRight(conf.URL, "/") + "/functions/v1/" + conf.Function,
		apiKey:   conf.APIKey,
		client:   &http.Client{Timeout: conf.Timeout},
	}, nil
}

func (svc *functionService) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", svc.apiKey)
	req.Header.Set("Authorization", "Bearer "+svc.apiKey)
}

// Send posts msg to the edge function and returns the number of devices it reached.
func (svc *functionService) Send(ctx context.Context, msg core.PushMessage) (int, error) {
	if msg.Data == nil {
		msg.Data = map[string]string{}
	}
	if len(msg.GroupIDs) == 0 {
		msg.GroupIDs = nil
	}
	if len(msg.UserIDs) == 0 {
		msg.UserIDs = nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.Wrap(err, "encoding push message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "creating request")
	}
	svc.setHeaders(req)

	resp, err := svc.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "invoking push function")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, errors.Wrap(err, "reading push function response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, errors.Errorf("push function: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var res functionResponse
	if len(respBody) > 0 {
		if err = json.Unmarshal(respBody, &res); err != nil {
			return 0, errors.Wrap(err, "decoding push function response")
		}
		if !res.Success {
			if res.Error == "" {
				res.Error = "push notification failed"
			}
			return 0, errors.New(res.Error)
		}
	}
	return res.Sent, nil
}

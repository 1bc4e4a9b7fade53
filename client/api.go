/*
api.go - HTTP client for the sync endpoints

A thin wrapper over net/http that speaks the api package's wire types. Only
the endpoints the reconcilers need are covered; interactive reads go through
the regular REST routes.
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tracklite/track-engine/api"
)

// API calls the tracking server on behalf of one owner.
type API struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewAPI creates a client for the given server and bearer token.
func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SyncSessions pushes a batch of closed sessions and returns the complete
// server-side list. An empty batch is a plain fetch.
func (a *API) SyncSessions(ctx context.Context, sessions []api.SaveSessionRequest) ([]api.WorkSessionDTO, error) {
	var resp api.SyncSessionsResponse
	err := a.post(ctx, "/api/v1/work-sessions/sync",
		api.SyncSessionsRequest{Sessions: sessions}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// ListVacationDays fetches the owner's full server-side vacation set.
func (a *API) ListVacationDays(ctx context.Context) ([]api.VacationDayDTO, error) {
	var days []api.VacationDayDTO
	if err := a.get(ctx, "/api/v1/vacation-days", &days); err != nil {
		return nil, err
	}
	return days, nil
}

// SyncVacationDays pushes the client's full believed state and returns the
// post-merge server set plus the IDs the server removed.
func (a *API) SyncVacationDays(ctx context.Context, days []api.SyncVacationRecord) (*api.SyncVacationResponse, error) {
	var resp api.SyncVacationResponse
	err := a.post(ctx, "/api/v1/vacation-days/sync",
		api.SyncVacationRequest{Days: days}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *API) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d: %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

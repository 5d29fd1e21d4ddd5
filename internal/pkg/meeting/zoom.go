package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/caconnect/CAConnect/internal/pkg/env"
)

const zoomTimeFormat = "2006-01-02T15:04:05Z"

// ZoomProvider schedules meetings through the Zoom REST API using
// server-to-server OAuth. Tokens are cached until shortly before expiry.
type ZoomProvider struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	accountID  string
	clientID   string
	secret     string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewZoomProvider reads Zoom credentials from the environment.
func NewZoomProvider() *ZoomProvider {
	return &ZoomProvider{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    env.GetEnv("ZOOM_BASE_URL", "https://api.zoom.us/v2"),
		authURL:    env.GetEnv("ZOOM_AUTH_URL", "https://zoom.us/oauth/token"),
		accountID:  env.GetEnv("ZOOM_ACCOUNT_ID", ""),
		clientID:   env.GetEnv("ZOOM_CLIENT_ID", ""),
		secret:     env.GetEnv("ZOOM_CLIENT_SECRET", ""),
	}
}

func (z *ZoomProvider) Name() string { return "zoom" }

func (z *ZoomProvider) token(ctx context.Context) (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.accessToken != "" && time.Now().Before(z.tokenExpiry) {
		return z.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", z.accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.authURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(z.clientID, z.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoom token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("zoom token request returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("zoom token response: %w", err)
	}

	z.accessToken = out.AccessToken
	z.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn-60) * time.Second)
	return z.accessToken, nil
}

func (z *ZoomProvider) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	token, err := z.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, z.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoom request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("zoom %s %s returned %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Create schedules a meeting on the connected Zoom account.
func (z *ZoomProvider) Create(ctx context.Context, topic string, startsAt time.Time, durationMinutes int) (*Details, error) {
	payload := map[string]interface{}{
		"topic":      topic,
		"type":       2, // scheduled meeting
		"start_time": startsAt.UTC().Format(zoomTimeFormat),
		"duration":   durationMinutes,
		"timezone":   "UTC",
		"settings": map[string]interface{}{
			"join_before_host": false,
			"waiting_room":     true,
		},
	}

	var out struct {
		ID       int64  `json:"id"`
		JoinURL  string `json:"join_url"`
		StartURL string `json:"start_url"`
		Password string `json:"password"`
	}
	if err := z.do(ctx, http.MethodPost, "/users/me/meetings", payload, &out); err != nil {
		return nil, err
	}

	return &Details{
		ExternalID: fmt.Sprintf("%d", out.ID),
		JoinURL:    out.JoinURL,
		StartURL:   out.StartURL,
		Password:   out.Password,
	}, nil
}

// Update moves an existing meeting to a new time.
func (z *ZoomProvider) Update(ctx context.Context, externalID string, startsAt time.Time, durationMinutes int) error {
	payload := map[string]interface{}{
		"start_time": startsAt.UTC().Format(zoomTimeFormat),
		"duration":   durationMinutes,
		"timezone":   "UTC",
	}
	return z.do(ctx, http.MethodPatch, "/meetings/"+externalID, payload, nil)
}

// Cancel deletes the meeting on the provider side.
func (z *ZoomProvider) Cancel(ctx context.Context, externalID string) error {
	return z.do(ctx, http.MethodDelete, "/meetings/"+externalID, nil, nil)
}

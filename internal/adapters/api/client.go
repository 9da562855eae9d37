package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/velachio/habitsync/internal/core/domain"
)

var (
	ErrUnauthorized = errors.New("api: unauthorized")
)

// Client speaks the cloud sync wire protocol: JSON bodies, bearer
// authentication, and a {message, payload} response envelope.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

type envelope struct {
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload"`
}

// HabitSyncResult is the server's reply to a habits push: the id promotions
// for habits it had not seen before, and its canonical habit collection.
type HabitSyncResult struct {
	TempIDs   map[string]string `json:"tempIds"`
	AllHabits []domain.Habit    `json:"allHabits"`
}

// LogSyncResult carries the server's canonical log collection. AllLogs may be
// nil when the server elects not to return one; callers skip the log merge in
// that case.
type LogSyncResult struct {
	AllLogs []domain.HabitLog `json:"allLogs"`
}

type Credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) post(ctx context.Context, path, token string, body any) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("api: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("api: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: failed to read response from %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("api: malformed response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, env.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("api: %s returned %d: %s", path, resp.StatusCode, msg)
	}

	return env.Payload, nil
}

// SyncHabits pushes the full local habits collection and returns the server's
// reconciled view.
func (c *Client) SyncHabits(ctx context.Context, token string, habits []domain.Habit) (*HabitSyncResult, error) {
	if habits == nil {
		habits = []domain.Habit{}
	}
	payload, err := c.post(ctx, "/habits/sync", token, habits)
	if err != nil {
		return nil, err
	}

	var result HabitSyncResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("api: malformed habit sync payload: %w", err)
	}
	if result.TempIDs == nil {
		result.TempIDs = map[string]string{}
	}
	return &result, nil
}

// SyncLogs pushes a batch of never-synced logs and returns the server's
// canonical log collection, if it sent one.
func (c *Client) SyncLogs(ctx context.Context, token string, logs []domain.HabitLog) (*LogSyncResult, error) {
	if logs == nil {
		logs = []domain.HabitLog{}
	}
	payload, err := c.post(ctx, "/logs/sync", token, logs)
	if err != nil {
		return nil, err
	}

	var result LogSyncResult
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("api: malformed log sync payload: %w", err)
		}
	}
	return &result, nil
}

type tokenPayload struct {
	Token string `json:"token"`
}

func (c *Client) signCall(ctx context.Context, path string, creds Credentials) (string, error) {
	payload, err := c.post(ctx, path, "", creds)
	if err != nil {
		return "", err
	}

	var tp tokenPayload
	if err := json.Unmarshal(payload, &tp); err != nil {
		return "", fmt.Errorf("api: malformed auth payload: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("api: no token received from %s", path)
	}
	return tp.Token, nil
}

func (c *Client) SignIn(ctx context.Context, creds Credentials) (string, error) {
	return c.signCall(ctx, "/auth/sign-in", creds)
}

func (c *Client) SignUp(ctx context.Context, creds Credentials) (string, error) {
	return c.signCall(ctx, "/auth/sign-up", creds)
}

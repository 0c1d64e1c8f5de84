package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/garvnn/meetup/pkg/logger"
)

// Client talks to the meetup backend API. All methods classify failures
// into two groups: transport problems (connection refused, timeout, DNS)
// surface as ordinary wrapped errors and satisfy IsNetworkError; HTTP
// responses outside 2xx surface as *APIError.
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is an application-level failure returned by a reachable backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// New returns a Client for the given base URL. A zero timeout falls back
// to 10 seconds, matching the mobile client default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// IsNetworkError reports whether err represents a transport-level failure
// (the backend was unreachable) as opposed to an application error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("api_request_failed", "path", path, "error", err)
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(resp.Body)
		logger.Debug("api_error_response", "path", path, "status", resp.StatusCode, "message", msg)
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "invalid response body: " + err.Error()}
	}
	return nil
}

// readErrorMessage extracts {"detail": ...} or {"error": ...} bodies,
// falling back to the raw text.
func readErrorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var shaped struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(b, &shaped) == nil {
		if shaped.Detail != "" {
			return shaped.Detail
		}
		if shaped.Error != "" {
			return shaped.Error
		}
	}
	return strings.TrimSpace(string(b))
}

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request /health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "invalid health body"}
	}
	return &out, nil
}

// CreateMeetup creates an event and returns its invite token and deep link.
func (c *Client) CreateMeetup(ctx context.Context, in CreateMeetupRequest) (*CreateMeetupResponse, error) {
	var out CreateMeetupResponse
	if err := c.post(ctx, "/create_meetup", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvite redeems an invite token and joins the meetup.
func (c *Client) AcceptInvite(ctx context.Context, in AcceptInviteRequest) (*AcceptInviteResponse, error) {
	var out AcceptInviteResponse
	if err := c.post(ctx, "/accept_invite", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SoftBan applies a moderation restriction to a user in a meetup.
func (c *Client) SoftBan(ctx context.Context, in SoftBanRequest) (*SoftBanResponse, error) {
	var out SoftBanResponse
	if err := c.post(ctx, "/soft_ban", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage delivers a chat/announcement message.
func (c *Client) SendMessage(ctx context.Context, in SendMessageRequest) (*SendMessageResponse, error) {
	var out SendMessageResponse
	if err := c.post(ctx, "/send_message", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMessages fetches a message page for a meetup.
func (c *Client) GetMessages(ctx context.Context, in GetMessagesRequest) (*GetMessagesResponse, error) {
	var out GetMessagesResponse
	if err := c.post(ctx, "/get_messages", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report submits a moderation report.
func (c *Client) Report(ctx context.Context, in ReportRequest) (*ReportResponse, error) {
	var out ReportResponse
	if err := c.post(ctx, "/report", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

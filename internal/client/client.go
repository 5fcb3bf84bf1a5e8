// Package client calls the scanflow callables over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/document"
	"github.com/claude/scanflow/internal/recommend"
)

// APIError is a non-200 reply from the server.
type APIError struct {
	Status  int
	Code    apperr.Code
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the server's classification to apperr.CodeOf.
func (e *APIError) Unwrap() error {
	return apperr.New(e.Code, "%s", e.Message)
}

// Client sends requests to the scanflow server as one user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for baseURL. token is sent as a bearer token when set.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding %s request: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Code: apperr.Internal, Message: strings.TrimSpace(string(data))}
		var eb struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &eb) == nil && eb.Code != "" {
			apiErr.Code = apperr.Code(eb.Code)
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decoding %s: %w", path, err)
	}
	return nil
}

// CreateProfile creates the caller's document.
func (c *Client) CreateProfile(ctx context.Context, in coach.ProfileInput) (*coach.StatusResult, error) {
	var res coach.StatusResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/users", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitOnboarding merges onboarding fields into the caller's document.
func (c *Client) SubmitOnboarding(ctx context.Context, fields map[string]any) (*coach.StatusResult, error) {
	var res coach.StatusResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/onboarding", fields, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ProcessScan submits a body scan.
func (c *Client) ProcessScan(ctx context.Context, in coach.ScanInput) (*coach.ScanResult, error) {
	var res coach.ScanResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/scans", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GenerateTrainingPlan asks the server for a new training plan.
func (c *Client) GenerateTrainingPlan(ctx context.Context) (*coach.TrainingPlanResult, error) {
	var res coach.TrainingPlanResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/plans/training", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GenerateNutritionPlan asks the server for a new nutrition plan.
func (c *Client) GenerateNutritionPlan(ctx context.Context, in coach.NutritionInput) (*coach.NutritionPlanResult, error) {
	var res coach.NutritionPlanResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/plans/nutrition", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LogWorkoutFeedback records post-workout feedback.
func (c *Client) LogWorkoutFeedback(ctx context.Context, payload map[string]any) (*coach.FeedbackResult, error) {
	var res coach.FeedbackResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/feedback/workout", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LogNutritionFeedback records a meal.
func (c *Client) LogNutritionFeedback(ctx context.Context, payload map[string]any) (*coach.FeedbackResult, error) {
	var res coach.FeedbackResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/feedback/nutrition", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Profile returns the caller's document.
func (c *Client) Profile(ctx context.Context) (document.Doc, error) {
	var doc document.Doc
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RecentLogs returns at most the last n entries of one log.
func (c *Client) RecentLogs(ctx context.Context, kind string, n int) ([]any, error) {
	path := "/api/v1/logs/" + url.PathEscape(kind) + "?" + url.Values{"limit": {strconv.Itoa(n)}}.Encode()
	var logs []any
	if err := c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Chat sends a message to the recommendation service.
func (c *Client) Chat(ctx context.Context, message string) (*recommend.ChatResult, error) {
	var res recommend.ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat", map[string]string{"message": message}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

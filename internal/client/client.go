// Package client talks to the WooVideo API on behalf of a shop owner.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"woovideo/internal/domain"
	"woovideo/internal/notifier"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Token          string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// Client performs authenticated API calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps well-known statuses to domain errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusPaymentRequired:
		return domain.ErrInsufficientPoints
	case http.StatusBadGateway:
		return domain.ErrProviderFailure
	}
	if e.Code == "webhook_missing" {
		return domain.ErrWebhookMissing
	}
	return nil
}

// New validates opts and returns a client. The HTTP client must not carry a
// global timeout because it also serves long-lived event streams; per-call
// deadlines come from RequestTimeout instead.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("client: base url must be an absolute http(s) url")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
		timeout:    timeout,
		logger:     opts.Logger,
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// Me describes the authenticated owner.
type Me struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	PointsBalance int64  `json:"points_balance"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &me)
	return me, err
}

// Preferences is the owner's integration settings as the API shows them.
type Preferences struct {
	WebhookURL        string     `json:"webhook_url"`
	StoreURL          string     `json:"store_url"`
	ConsumerKey       string     `json:"consumer_key"`
	ConsumerSecret    string     `json:"consumer_secret"`
	GenerationEnabled bool       `json:"generation_enabled"`
	PublishingEnabled bool       `json:"publishing_enabled"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// PreferencesUpdate changes only the non-nil fields.
type PreferencesUpdate struct {
	WebhookURL     *string `json:"webhook_url,omitempty"`
	StoreURL       *string `json:"store_url,omitempty"`
	ConsumerKey    *string `json:"consumer_key,omitempty"`
	ConsumerSecret *string `json:"consumer_secret,omitempty"`
}

func (c *Client) Preferences(ctx context.Context) (Preferences, error) {
	var p Preferences
	err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &p)
	return p, err
}

func (c *Client) SavePreferences(ctx context.Context, update PreferencesUpdate) (Preferences, error) {
	var p Preferences
	err := c.do(ctx, http.MethodPut, "/api/preferences", update, &p)
	return p, err
}

// GenerateRequest describes the video to produce.
type GenerateRequest struct {
	ProductID          string `json:"product_id,omitempty"`
	ProductName        string `json:"product_name,omitempty"`
	ProductImageURL    string `json:"product_image_url,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
	Duration           int    `json:"duration,omitempty"`
	AspectRatio        string `json:"aspect_ratio,omitempty"`
	Style              string `json:"style,omitempty"`
	Voice              string `json:"voice,omitempty"`
	Instructions       string `json:"instructions,omitempty"`
}

// GenerateResult is the accepted job.
type GenerateResult struct {
	JobID       string           `json:"job_id"`
	Status      domain.JobStatus `json:"status"`
	ExecutionID string           `json:"execution_id,omitempty"`
	PointsCost  int64            `json:"points_cost"`
}

func (c *Client) GenerateVideo(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var res GenerateResult
	if err := c.do(ctx, http.MethodPost, "/api/videos/generate", req, &res); err != nil {
		return GenerateResult{}, err
	}
	if res.JobID == "" {
		return GenerateResult{}, errors.New("client: response without job id")
	}
	return res, nil
}

// FetchStatus implements notifier.StatusFetcher. The owner is implied by the token.
func (c *Client) FetchStatus(ctx context.Context, jobID string, _ int64) (domain.StatusReport, error) {
	var report domain.StatusReport
	err := c.do(ctx, http.MethodGet, "/api/videos/status/"+url.PathEscape(jobID), nil, &report)
	return report, err
}

var _ notifier.StatusFetcher = (*Client)(nil)

// Package n8n submits video generation jobs to an owner's N8N workflow.
package n8n

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
	"woovideo/internal/middleware"
)

// ErrSubmitRejected is returned when the workflow answers with a non-2xx status.
var ErrSubmitRejected = errors.New("n8n: submission rejected")

// ErrMissingWebhook indicates that no workflow URL is configured.
var ErrMissingWebhook = errors.New("n8n: webhook url is required")

// maxReasonBytes bounds the upstream reason carried by ErrSubmitRejected.
const maxReasonBytes = 200

// Options configures the submitter.
type Options struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// Client posts job submissions to N8N webhooks.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// Product describes what the video is about.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Parameters tune the rendered video.
type Parameters struct {
	Duration    int    `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Style       string `json:"style,omitempty"`
	Voice       string `json:"voice,omitempty"`
}

// SubmitRequest is the body posted to the workflow.
type SubmitRequest struct {
	JobID        string     `json:"job_id"`
	UserID       int64      `json:"user_id"`
	CallbackURL  string     `json:"callback_url"`
	Product      Product    `json:"product"`
	Parameters   Parameters `json:"parameters"`
	Instructions string     `json:"instructions,omitempty"`
}

// SubmitResult describes an accepted submission. ExecutionID is the
// workflow's own identifier when it echoes one; callbacks still carry JobID.
type SubmitResult struct {
	JobID       string
	ExecutionID string
	StatusCode  int
}

type submitResponse struct {
	JobID       string `json:"job_id"`
	JobIDCamel  string `json:"jobId"`
	ExecutionID string `json:"execution_id"`
	Message     string `json:"message"`
	Error       string `json:"error"`
}

// NewClient constructs a client. A zero RequestTimeout selects 30 seconds.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, logger: opts.Logger}
}

// Submit posts req to webhookURL.
func (c *Client) Submit(ctx context.Context, webhookURL string, req SubmitRequest) (SubmitResult, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return SubmitResult{}, ErrMissingWebhook
	}
	if u, err := url.Parse(webhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return SubmitResult{}, fmt.Errorf("n8n: invalid webhook url")
	}
	if req.JobID == "" {
		return SubmitResult{}, errors.New("n8n: job id is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("n8n: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("n8n: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if rid := middleware.RequestIDFromContext(ctx); rid != "" {
		httpReq.Header.Set(middleware.RequestIDHeader, rid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("n8n: post: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	c.logger.Debug().
		Str("job_id", req.JobID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("n8n: submit")

	var parsed submitResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := firstNonEmpty(parsed.Message, parsed.Error, strings.TrimSpace(string(raw)), resp.Status)
		reason = domain.TruncateUTF8(strings.ToValidUTF8(reason, ""), maxReasonBytes)
		return SubmitResult{StatusCode: resp.StatusCode}, fmt.Errorf("%w: %s", ErrSubmitRejected, reason)
	}

	return SubmitResult{
		JobID:       req.JobID,
		ExecutionID: firstNonEmpty(parsed.ExecutionID, parsed.JobID, parsed.JobIDCamel),
		StatusCode:  resp.StatusCode,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

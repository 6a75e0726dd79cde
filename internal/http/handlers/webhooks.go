package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"woovideo/internal/domain"
)

// WebhookSecretHeader carries the shared secret on workflow callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

type videoCallbackRequest struct {
	JobID      string `json:"job_id"`
	JobIDCamel string `json:"jobId"`
	Status     string `json:"status"`
	VideoURL   string `json:"video_url"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

func (c videoCallbackRequest) jobID() string {
	if id := strings.TrimSpace(c.JobID); id != "" {
		return id
	}
	return strings.TrimSpace(c.JobIDCamel)
}

func callbackStatus(raw string) (domain.JobStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "success", "succeeded", "done":
		return domain.JobStatusCompleted, true
	case "failed", "failure", "error":
		return domain.JobStatusFailed, true
	default:
		return "", false
	}
}

// N8NVideoCallback settles a job from the workflow's result and announces it
// on the owner's push channel. A repeated callback changes nothing.
func (a *App) N8NVideoCallback(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(WebhookSecretHeader)
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.N8NCallbackSecret)) != 1 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
		return
	}
	var req videoCallbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	jobID := req.jobID()
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	status, ok := callbackStatus(req.Status)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "status must be completed or failed")
		return
	}

	var (
		settlement *domain.Settlement
		err        error
	)
	switch status {
	case domain.JobStatusCompleted:
		videoURL := strings.TrimSpace(req.VideoURL)
		if videoURL == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "video_url required for completed jobs")
			return
		}
		settlement, err = a.Jobs.Complete(r.Context(), jobID, videoURL)
	default:
		message := strings.TrimSpace(req.Message)
		if message == "" {
			message = strings.TrimSpace(req.Error)
		}
		if message == "" {
			message = "video generation failed"
		}
		message = domain.TruncateUTF8(message, domain.MaxMessageBytes)
		settlement, err = a.Jobs.Fail(r.Context(), jobID, message)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateOperation):
			a.json(w, http.StatusOK, map[string]any{"ok": true, "duplicate": true})
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		default:
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("settle video job")
			a.error(w, http.StatusInternalServerError, "internal", "failed to settle job")
		}
		return
	}

	msg := domain.MessageFromSettlement(*settlement)
	if err := a.Publisher.Publish(r.Context(), msg); err != nil {
		// owners still learn the outcome from the status endpoint
		a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("publish job event")
	}
	a.Logger.Info().
		Str("job_id", jobID).
		Int64("user_id", settlement.OwnerUserID).
		Str("status", string(settlement.Status)).
		Int64("points_deducted", settlement.PointsDeducted).
		Msg("video job settled")
	a.json(w, http.StatusOK, map[string]any{"ok": true, "status": settlement.Status})
}

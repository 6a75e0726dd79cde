package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"woovideo/internal/domain"
	"woovideo/internal/middleware"
	"woovideo/internal/n8n"
)

type videoGenerateRequest struct {
	ProductID          string `json:"product_id"`
	ProductName        string `json:"product_name"`
	ProductImageURL    string `json:"product_image_url"`
	ProductDescription string `json:"product_description"`
	Duration           int    `json:"duration"`
	AspectRatio        string `json:"aspect_ratio"`
	Style              string `json:"style"`
	Voice              string `json:"voice"`
	Instructions       string `json:"instructions"`
}

type jobResponse struct {
	JobID       string           `json:"job_id"`
	Status      domain.JobStatus `json:"status"`
	ExecutionID string           `json:"execution_id,omitempty"`
	PointsCost  int64            `json:"points_cost"`
}

const submitFailureTimeout = 5 * time.Second

// VideosGenerate records a pending job and hands it to the owner's workflow.
// Completion arrives later through the callback webhook.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())

	var req videoGenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", translate(locale, msgInvalidPayload))
		return
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.ProductName = strings.TrimSpace(req.ProductName)
	if req.ProductID == "" && req.ProductName == "" {
		a.error(w, http.StatusBadRequest, "bad_request", translate(locale, msgProductRequired))
		return
	}

	prefs, err := a.Prefs.Get(r.Context(), userID)
	if err != nil {
		a.log(r).Error().Err(err).Msg("load preferences")
		a.error(w, http.StatusInternalServerError, "internal", translate(locale, msgInternal))
		return
	}
	webhookURL := prefs.WebhookURL
	if webhookURL == "" {
		webhookURL = a.Config.N8NWebhookURL
	}
	if webhookURL == "" {
		a.error(w, http.StatusBadRequest, "webhook_missing", translate(locale, msgWebhookMissing))
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.log(r).Error().Err(err).Msg("load user")
		a.error(w, http.StatusInternalServerError, "internal", translate(locale, msgInternal))
		return
	}
	cost := a.Config.VideoPointsCost
	if !user.CanAfford(cost) {
		a.error(w, http.StatusPaymentRequired, "insufficient_points", translate(locale, msgInsufficientPoints))
		return
	}

	job := &domain.GenerationJob{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		PointsCost:  cost,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.log(r).Error().Err(err).Msg("create video job")
		a.error(w, http.StatusInternalServerError, "internal", translate(locale, msgInternal))
		return
	}

	result, err := a.Submitter.Submit(r.Context(), webhookURL, n8n.SubmitRequest{
		JobID:       job.ID,
		UserID:      userID,
		CallbackURL: a.Config.CallbackURL(),
		Product: n8n.Product{
			ID:          req.ProductID,
			Name:        req.ProductName,
			ImageURL:    req.ProductImageURL,
			Description: req.ProductDescription,
		},
		Parameters: n8n.Parameters{
			Duration:    req.Duration,
			AspectRatio: req.AspectRatio,
			Style:       req.Style,
			Voice:       req.Voice,
		},
		Instructions: req.Instructions,
	})
	if err != nil {
		a.log(r).Warn().Err(err).Str("job_id", job.ID).Msg("submit video job")
		// the request context may already be gone when the workflow timed out
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), submitFailureTimeout)
		defer cancel()
		if _, ferr := a.Jobs.Fail(ctx, job.ID, domain.TruncateUTF8(err.Error(), domain.MaxMessageBytes)); ferr != nil {
			a.log(r).Error().Err(ferr).Str("job_id", job.ID).Msg("mark job failed")
		}
		msg := translate(locale, msgSubmitFailed)
		if errors.Is(err, n8n.ErrSubmitRejected) {
			msg += " " + strings.TrimPrefix(err.Error(), n8n.ErrSubmitRejected.Error()+": ")
		}
		a.error(w, http.StatusBadGateway, "submit_failed", msg)
		return
	}

	a.log(r).Info().Str("job_id", job.ID).Str("execution_id", result.ExecutionID).Msg("video job submitted")
	a.json(w, http.StatusAccepted, jobResponse{
		JobID:       job.ID,
		Status:      domain.JobStatusPending,
		ExecutionID: result.ExecutionID,
		PointsCost:  cost,
	})
}

// VideoStatus is the pull channel: it reports a job's current state to its owner.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetForOwner(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.log(r).Error().Err(err).Str("job_id", jobID).Msg("load video job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	var balance int64
	if job.Status.Terminal() {
		user, err := a.Users.GetByID(r.Context(), userID)
		if err != nil {
			a.log(r).Error().Err(err).Msg("load user")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
			return
		}
		balance = user.PointsBalance
	}
	a.json(w, http.StatusOK, domain.ReportForJob(*job, balance))
}

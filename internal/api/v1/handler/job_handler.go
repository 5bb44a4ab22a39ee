package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type JobHandler struct {
	jobService service.JobService
	validate   *validator.Validate
	logger     zerolog.Logger
}

func NewJobHandler(jobService service.JobService, v *validator.Validate, logger zerolog.Logger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		validate:   v,
		logger:     logger.With().Str("handler", "job").Logger(),
	}
}

func (h *JobHandler) RegisterRoutes(mux *http.ServeMux, authMw, serviceMw func(http.Handler) http.Handler) {
	mux.Handle("/jobs", authMw(http.HandlerFunc(h.list)))
	mux.Handle("/jobs/", authMw(http.HandlerFunc(h.get)))
	mux.Handle("/webhooks/jobs", serviceMw(http.HandlerFunc(h.syncWebhook)))
}

func (h *JobHandler) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, offset := pagination(r, 50)
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	jobs, err := h.jobService.List(r.Context(), includeArchived, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("job list failed")
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *JobHandler) get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.jobService.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// syncWebhook takes a scraper batch and upserts it.
func (h *JobHandler) syncWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.JobSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	synced, err := h.jobService.Sync(r.Context(), req.Jobs)
	if err != nil {
		h.logger.Error().Err(err).Int("synced", synced).Msg("job sync failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "job sync failed",
			"synced": synced,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

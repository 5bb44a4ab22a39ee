package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/stage"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ApplicationHandler struct {
	appService service.ApplicationService
	validate   *validator.Validate
	logger     zerolog.Logger
}

func NewApplicationHandler(appService service.ApplicationService, v *validator.Validate, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		appService: appService,
		validate:   v,
		logger:     logger.With().Str("handler", "application").Logger(),
	}
}

// RegisterRoutes mounts v1 application routes plus the workflow-engine
// webhook receiver.
func (h *ApplicationHandler) RegisterRoutes(mux *http.ServeMux, authMw, serviceMw func(http.Handler) http.Handler) {
	mux.Handle("/applications", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/applications/", authMw(http.HandlerFunc(h.handleItem)))
	mux.Handle("/webhooks/applications", serviceMw(http.HandlerFunc(h.handleWebhook)))
}

func (h *ApplicationHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ApplicationHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/applications/"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		app, err := h.appService.Get(r.Context(), id, userID)
		if err != nil {
			h.respondAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)

	case http.MethodPatch:
		var req dto.ApplicationPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
			return
		}
		app, err := h.appService.Patch(r.Context(), id, userID, service.ApplicationPatch{
			Stage:    req.Stage,
			NoteText: req.Note,
		})
		if err != nil {
			h.respondAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)

	case http.MethodDelete:
		if err := h.appService.Delete(r.Context(), id, userID); err != nil {
			h.respondAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ApplicationHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}
	limit, offset := pagination(r, 50)
	apps, err := h.appService.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var req dto.ApplicationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	app, err := h.appService.Create(r.Context(), userID, req.JobID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateApplication):
			writeError(w, http.StatusConflict, "job is already tracked")
		case errors.Is(err, repository.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		default:
			h.logger.Error().Err(err).Msg("application create failed")
			writeError(w, http.StatusInternalServerError, "failed to create application")
		}
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// handleWebhook dispatches one workflow-engine action. Every action operates
// on the user named in the payload, never on a session.
func (h *ApplicationHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.ApplicationWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	ctx := r.Context()
	switch req.Action {
	case dto.ActionUpdateStage:
		app, err := h.appService.UpdateStage(ctx, req.ApplicationID, req.UserID, req.Stage)
		if err != nil {
			h.respondAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)

	case dto.ActionAddNote:
		if req.Note == "" {
			writeError(w, http.StatusBadRequest, "note text is required")
			return
		}
		app, err := h.appService.AddNote(ctx, req.ApplicationID, req.UserID, req.Note)
		if err != nil {
			h.respondAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)

	case dto.ActionSetInterview:
		if req.InterviewAt == nil {
			writeError(w, http.StatusBadRequest, "interview_at is required")
			return
		}
		app, err := h.appService.SetInterview(ctx, req.ApplicationID, req.UserID, *req.InterviewAt)
		if err != nil {
			h.respondAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)

	case dto.ActionClearInterview:
		app, err := h.appService.ClearInterview(ctx, req.ApplicationID, req.UserID)
		if err != nil {
			h.respondAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)

	case dto.ActionBulkUpdate:
		if len(req.Updates) == 0 {
			writeError(w, http.StatusBadRequest, "updates list is empty")
			return
		}
		updated, err := h.appService.BulkUpdate(ctx, req.UserID, req.Updates)
		if err != nil {
			// Partial progress still counts: report how far we got.
			h.logger.Error().Err(err).Int("updated", updated).Msg("bulk update aborted")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "bulk update failed",
				"updated": updated,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": updated})

	default:
		writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
	}
}

func (h *ApplicationHandler) respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrApplicationNotFound):
		writeError(w, http.StatusNotFound, "application not found")
	case errors.Is(err, stage.ErrUnknownStage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("application request failed")
		writeError(w, http.StatusInternalServerError, "application request failed")
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validate:    v,
		logger:      logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes mounts v1 user routes. Accounts are created and deleted only
// through the identity webhook, so there is no POST /users/me.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw, serviceMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("/users/me/credits", authMw(http.HandlerFunc(h.getCredits)))
	mux.Handle("/webhooks/identity", serviceMw(http.HandlerFunc(h.identityWebhook)))
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) getCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	summary, err := h.userService.Credits(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load credits")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// identityWebhook provisions or removes accounts on identity-provider events.
// Replays of either event are acknowledged without side effects.
func (h *UserHandler) identityWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.IdentityWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	var err error
	switch req.Type {
	case "user.created":
		err = h.userService.Provision(r.Context(), req.Data.ID, req.Data.Email, req.Data.Name)
	case "user.deleted":
		err = h.userService.Remove(r.Context(), req.Data.ID)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("type", req.Type).Str("user_id", req.Data.ID).Msg("identity webhook failed")
		writeError(w, http.StatusInternalServerError, "identity event processing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

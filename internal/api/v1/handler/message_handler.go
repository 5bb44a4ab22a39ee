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

type MessageHandler struct {
	messageService service.MessageService
	validate       *validator.Validate
	logger         zerolog.Logger
}

func NewMessageHandler(messageService service.MessageService, v *validator.Validate, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		validate:       v,
		logger:         logger.With().Str("handler", "message").Logger(),
	}
}

func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/messages/generate", authMw(http.HandlerFunc(h.generate)))
}

func (h *MessageHandler) generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var req dto.MessageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	msg, err := h.messageService.Generate(r.Context(), userID, req.ContactID, req.ApplicationID, req.Tone)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrContactNotFound):
			writeError(w, http.StatusNotFound, "contact not found")
		case errors.Is(err, repository.ErrApplicationNotFound):
			writeError(w, http.StatusNotFound, "application not found")
		default:
			h.logger.Error().Err(err).Msg("message generation failed")
			writeError(w, http.StatusInternalServerError, "message generation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

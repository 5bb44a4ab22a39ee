package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ContactHandler struct {
	contactService service.ContactService
	validate       *validator.Validate
	logger         zerolog.Logger
	finderCost     int
}

func NewContactHandler(contactService service.ContactService, v *validator.Validate, logger zerolog.Logger, finderCost int) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		validate:       v,
		logger:         logger.With().Str("handler", "contact").Logger(),
		finderCost:     finderCost,
	}
}

// RegisterRoutes mounts v1 contact routes. The webhook receiver is mounted
// behind the shared-secret middleware, not the user JWT middleware.
func (h *ContactHandler) RegisterRoutes(mux *http.ServeMux, authMw, serviceMw func(http.Handler) http.Handler) {
	mux.Handle("/contacts", authMw(http.HandlerFunc(h.listContacts)))
	mux.Handle("/contacts/search", authMw(http.HandlerFunc(h.searchContacts)))
	mux.Handle("/contacts/finder", authMw(http.HandlerFunc(h.triggerFinder)))
	mux.Handle("/webhooks/contacts", serviceMw(http.HandlerFunc(h.ingestWebhook)))
}

func (h *ContactHandler) searchContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var req dto.ContactSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	result, err := h.contactService.Search(r.Context(), userID, req.Domain, req.CompanyName, req.JobID)
	if err != nil {
		h.respondSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ContactSearchResponse{
		Contacts:         result.Contacts,
		Cached:           result.Cached,
		CreditsDeducted:  result.CreditsDeducted,
		RemainingCredits: result.RemainingCredits,
	})
}

func (h *ContactHandler) respondSearchError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":            "insufficient credits",
			"creditsRequired":  insufficient.Required,
			"creditsAvailable": insufficient.Available,
		})
	case errors.Is(err, service.ErrNoContactsFound):
		writeError(w, http.StatusNotFound, "no contacts found for this company")
	default:
		h.logger.Error().Err(err).Msg("contact search failed")
		writeError(w, http.StatusInternalServerError, "contact search failed")
	}
}

func (h *ContactHandler) listContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var contacts []model.Contact
	var err error
	if domain := r.URL.Query().Get("domain"); domain != "" {
		contacts, err = h.contactService.ListContactsByDomain(r.Context(), userID, domain)
	} else {
		limit, offset := pagination(r, 50)
		contacts, err = h.contactService.ListContacts(r.Context(), userID, limit, offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) triggerFinder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var req dto.FinderTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	remaining, err := h.contactService.TriggerFinder(r.Context(), userID, req.ApplicationID)
	if err != nil {
		var insufficient *service.InsufficientCreditsError
		switch {
		case errors.As(err, &insufficient):
			writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":            "insufficient credits",
				"creditsRequired":  insufficient.Required,
				"creditsAvailable": insufficient.Available,
			})
		case errors.Is(err, service.ErrWorkflowNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "contact finder is not available")
		default:
			h.logger.Error().Err(err).Msg("contact finder trigger failed")
			writeError(w, http.StatusInternalServerError, "contact finder trigger failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, dto.FinderTriggerResponse{
		Triggered:        true,
		CreditsDeducted:  h.finderCost,
		RemainingCredits: remaining,
	})
}

func (h *ContactHandler) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.ContactWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	saved, err := h.contactService.IngestWebhook(r.Context(), req.UserID, req.Contacts)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("contact webhook ingest failed")
		writeError(w, http.StatusInternalServerError, "failed to save contacts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": saved})
}

// pagination reads limit/offset query params with sane bounds.
func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

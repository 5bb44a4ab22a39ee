package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminHandler serves cache operations and credit adjustments. Cache stats
// and actions require an admin-plan session; the cleanup endpoint is called
// by the external cron with its own shared secret.
type AdminHandler struct {
	cacheService  service.CacheService
	creditService service.CreditService
	userService   service.UserService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewAdminHandler(cacheService service.CacheService, creditService service.CreditService, userService service.UserService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		cacheService:  cacheService,
		creditService: creditService,
		userService:   userService,
		validate:      v,
		logger:        logger.With().Str("handler", "admin").Logger(),
	}
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw, cronMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/cache-stats", authMw(http.HandlerFunc(h.handleCacheStats)))
	mux.Handle("/admin/credits", authMw(http.HandlerFunc(h.grantCredits)))
	mux.Handle("/admin/cache-cleanup", cronMw(http.HandlerFunc(h.runCleanup)))
}

// requireAdmin loads the session user and rejects non-admin plans.
func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return false
	}
	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusForbidden, "admin access required")
		return false
	}
	if user.Plan != model.PlanAdmin {
		writeError(w, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

func (h *AdminHandler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		days := 7
		if s := r.URL.Query().Get("days"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				days = n
			}
		}
		stats, err := h.cacheService.Stats(r.Context(), days)
		if err != nil {
			h.logger.Error().Err(err).Msg("cache stats failed")
			writeError(w, http.StatusInternalServerError, "failed to load cache stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)

	case http.MethodPost:
		var req dto.CacheActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
			return
		}
		h.runCacheAction(w, r, req)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AdminHandler) runCacheAction(w http.ResponseWriter, r *http.Request, req dto.CacheActionRequest) {
	switch req.Action {
	case "cleanup":
		result, err := h.cacheService.CleanupExpired(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("cache cleanup failed")
			writeError(w, http.StatusInternalServerError, "cache cleanup failed")
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "invalidate":
		if req.Domain == "" {
			writeError(w, http.StatusBadRequest, "domain is required for invalidate")
			return
		}
		if err := h.cacheService.Invalidate(r.Context(), req.Domain); err != nil {
			h.logger.Error().Err(err).Str("domain", req.Domain).Msg("cache invalidate failed")
			writeError(w, http.StatusInternalServerError, "cache invalidate failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (h *AdminHandler) grantCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	var req dto.CreditGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	delta, err := h.creditService.Grant(r.Context(), req.UserID, req.NewBalance, req.Reason)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("credit grant failed")
		writeError(w, http.StatusInternalServerError, "credit grant failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credits": req.NewBalance, "delta": delta})
}

// runCleanup is the external cron's entrypoint. GET keeps it callable from
// the simplest schedulers.
func (h *AdminHandler) runCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := h.cacheService.CleanupExpired(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("scheduled cache cleanup failed")
		writeError(w, http.StatusInternalServerError, "cache cleanup failed")
		return
	}
	h.logger.Info().Int("company_deleted", result.Company).Int("contact_deleted", result.Contact).Msg("cache cleanup complete")
	writeJSON(w, http.StatusOK, result)
}

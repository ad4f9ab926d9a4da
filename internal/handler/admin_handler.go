package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/service"
)

// AdminHandler serves the moderation surface. Privilege checks happen in
// middleware before these handlers run.
type AdminHandler struct {
	moderation *service.ModerationService
	users      *UserHandler
	logger     zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler. users renders user records.
func NewAdminHandler(moderation *service.ModerationService, users *UserHandler, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		moderation: moderation,
		users:      users,
		logger:     logger.With().Str("handler", "admin").Logger(),
	}
}

type banRequest struct {
	IsBanned *flexBool `json:"isBanned"`
}

type platformMessageRequest struct {
	Message *string `json:"message"`
}

type platformMessageResponse struct {
	Message   string     `json:"message"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.moderation.ListAllUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.users.presentAll(r.Context(), users))
}

// SetBanned handles PUT /admin/users/{id}/ban.
func (h *AdminHandler) SetBanned(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "isBanned must be true, false, 0 or 1")
		return
	}
	if req.IsBanned == nil {
		badRequest(w, "isBanned is required")
		return
	}

	userID := chi.URLParam(r, "id")
	banned := bool(*req.IsBanned)
	if err := h.moderation.SetBanned(r.Context(), userID, banned); err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := "unbanned"
	if banned {
		status = "banned"
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User " + userID + " " + status + " successfully"})
}

// GetPlatformMessage handles GET /admin/platform_message. It is open to
// every client.
func (h *AdminHandler) GetPlatformMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.moderation.GetBroadcastMessage(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := platformMessageResponse{Message: msg.Message}
	if !msg.UpdatedAt.IsZero() {
		at := msg.UpdatedAt
		resp.UpdatedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetPlatformMessage handles POST /admin/platform_message.
func (h *AdminHandler) SetPlatformMessage(w http.ResponseWriter, r *http.Request) {
	var req platformMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Message == nil {
		badRequest(w, "message content is required")
		return
	}

	if _, err := h.moderation.SetBroadcastMessage(r.Context(), *req.Message); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Platform message updated successfully"})
}

// ListSwapRequests handles GET /admin/swap_requests.
func (h *AdminHandler) ListSwapRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.moderation.ListAllRequests(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/auth"
	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/service"
)

// SwapHandler serves the swap request lifecycle.
type SwapHandler struct {
	swaps  *service.SwapService
	logger zerolog.Logger
}

// NewSwapHandler creates a new SwapHandler.
func NewSwapHandler(swaps *service.SwapService, logger zerolog.Logger) *SwapHandler {
	return &SwapHandler{
		swaps:  swaps,
		logger: logger.With().Str("handler", "swap").Logger(),
	}
}

type createSwapRequest struct {
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	ReceiverID   string `json:"receiverId"`
	ReceiverName string `json:"receiverName"`
	SkillOffered string `json:"skillOffered"`
	SkillWanted  string `json:"skillWanted"`
}

type createSwapResponse struct {
	Message     string              `json:"message"`
	RequestID   string              `json:"requestId"`
	SwapRequest *domain.SwapRequest `json:"swapRequest"`
}

type updateSwapRequest struct {
	Status string `json:"status"`
}

type updateSwapResponse struct {
	Message     string              `json:"message"`
	SwapRequest *domain.SwapRequest `json:"swapRequest"`
}

// Create handles POST /swap_requests.
func (h *SwapHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSwapRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	created, err := h.swaps.CreateRequest(r.Context(), service.CreateRequestInput{
		SenderID:     req.SenderID,
		SenderName:   req.SenderName,
		ReceiverID:   req.ReceiverID,
		ReceiverName: req.ReceiverName,
		SkillOffered: req.SkillOffered,
		SkillWanted:  req.SkillWanted,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSwapResponse{
		Message:     "Swap request sent successfully",
		RequestID:   created.ID,
		SwapRequest: created,
	})
}

// ListForUser handles GET /swap_requests/{id} where id is a user id.
func (h *SwapHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.swaps.ListForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// UpdateStatus handles PUT /swap_requests/{id} where id is a request id.
func (h *SwapHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateSwapRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	updated, err := h.swaps.Transition(r.Context(), chi.URLParam(r, "id"), domain.SwapStatus(req.Status))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updateSwapResponse{
		Message:     "Swap request " + string(updated.Status) + " successfully",
		SwapRequest: updated,
	})
}

// RequireParty lets a request through only when the caller sent or received
// the swap request named by {id}.
func (h *SwapHandler) RequireParty(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := auth.RequireAuth(r.Context())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		req, err := h.swaps.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if !req.Involves(authCtx.UserID) {
			h.logger.Debug().Str("request_id", req.ID).Str("user_id", authCtx.UserID).Msg("swap request change by non-party refused")
			writeError(w, h.logger, domain.ErrNotOwner)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Delete handles DELETE /swap_requests/{id}.
func (h *SwapHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.swaps.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Swap request deleted successfully"})
}

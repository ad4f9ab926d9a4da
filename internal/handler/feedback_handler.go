package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/service"
)

// FeedbackHandler serves the feedback ledger.
type FeedbackHandler struct {
	feedback *service.FeedbackService
	logger   zerolog.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedback *service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedback: feedback,
		logger:   logger.With().Str("handler", "feedback").Logger(),
	}
}

type submitFeedbackRequest struct {
	SwapRequestID string `json:"swapRequestId"`
	GiverID       string `json:"giverId"`
	ReceiverID    string `json:"receiverId"`
	Rating        *int   `json:"rating"`
	Comment       string `json:"comment"`
}

type submitFeedbackResponse struct {
	Message    string `json:"message"`
	FeedbackID string `json:"feedbackId"`
}

// Submit handles POST /feedback.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	fb, err := h.feedback.Submit(r.Context(), service.SubmitInput{
		SwapRequestID: req.SwapRequestID,
		GiverID:       req.GiverID,
		ReceiverID:    req.ReceiverID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitFeedbackResponse{
		Message:    "Feedback submitted successfully",
		FeedbackID: fb.ID,
	})
}

// List handles GET /feedback.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.feedback.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

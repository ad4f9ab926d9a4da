package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/metrics"
	"github.com/prn-tf/skillswap/internal/repository"
)

// RatingScale is the inclusive range a feedback rating must fall in.
type RatingScale struct {
	Min int
	Max int
}

// DefaultRatingScale is 1..5.
var DefaultRatingScale = RatingScale{Min: domain.DefaultMinRating, Max: domain.DefaultMaxRating}

// Contains reports whether rating lies within the scale.
func (r RatingScale) Contains(rating int) bool {
	return rating >= r.Min && rating <= r.Max
}

// FeedbackService is the append-only feedback ledger.
type FeedbackService struct {
	feedback repository.FeedbackRepository
	tx       repository.TxManager
	scale    RatingScale
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(
	feedback repository.FeedbackRepository,
	tx repository.TxManager,
	scale RatingScale,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *FeedbackService {
	return &FeedbackService{
		feedback: feedback,
		tx:       tx,
		scale:    scale,
		metrics:  m,
		logger:   logger.With().Str("service", "feedback").Logger(),
		now:      time.Now,
	}
}

// SubmitInput contains the data needed to submit feedback.
type SubmitInput struct {
	SwapRequestID string
	GiverID       string
	ReceiverID    string
	// Rating is nil when absent.
	Rating  *int
	Comment string
}

// Submit appends a feedback entry. The swap request link is advisory and is
// not checked against existing requests.
func (s *FeedbackService) Submit(ctx context.Context, input SubmitInput) (*domain.Feedback, error) {
	var fields []string
	if input.SwapRequestID == "" {
		fields = append(fields, "swapRequestId")
	}
	if input.GiverID == "" {
		fields = append(fields, "giverId")
	}
	if input.ReceiverID == "" {
		fields = append(fields, "receiverId")
	}
	if input.Rating == nil {
		fields = append(fields, "rating")
	}
	if len(fields) > 0 {
		return nil, missing(fields...)
	}

	if !s.scale.Contains(*input.Rating) {
		s.logger.Debug().Int("rating", *input.Rating).Msg("rating out of range")
		return nil, domain.NewDomainError(domain.ErrInvalidRating, "rating out of range", "")
	}

	fb := domain.NewFeedback(input.SwapRequestID, input.GiverID, input.ReceiverID, *input.Rating, input.Comment, s.now())

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.feedback.Create(ctx, fb)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("swap_request_id", input.SwapRequestID).Msg("failed to submit feedback")
		return nil, wrapStorage(err, "submit feedback")
	}

	s.metrics.IncrementFeedbackSubmitted()
	s.logger.Info().
		Str("feedback_id", fb.ID).
		Str("swap_request_id", fb.SwapRequestID).
		Str("giver_id", fb.GiverID).
		Msg("feedback submitted")

	return fb, nil
}

// ListAll returns every feedback entry, newest first.
func (s *FeedbackService) ListAll(ctx context.Context) ([]*domain.Feedback, error) {
	list, err := s.feedback.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list feedback")
		return nil, wrapStorage(err, "list feedback")
	}
	return list, nil
}

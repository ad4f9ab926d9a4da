package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/metrics"
	"github.com/prn-tf/skillswap/internal/repository"
)

// SwapPolicy configures the swap lifecycle engine.
type SwapPolicy struct {
	// StrictTransitions rejects transitions out of a terminal state.
	// When false an accepted request may be overwritten as rejected and vice versa.
	StrictTransitions bool

	// VerifyParticipants requires both sender and receiver to exist.
	VerifyParticipants bool
}

// SwapService is the swap lifecycle engine: it owns swap requests and their
// pending -> accepted | rejected state machine.
type SwapService struct {
	swaps   repository.SwapRequestRepository
	users   repository.UserRepository
	tx      repository.TxManager
	policy  SwapPolicy
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSwapService creates a new SwapService.
func NewSwapService(
	swaps repository.SwapRequestRepository,
	users repository.UserRepository,
	tx repository.TxManager,
	policy SwapPolicy,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SwapService {
	return &SwapService{
		swaps:   swaps,
		users:   users,
		tx:      tx,
		policy:  policy,
		metrics: m,
		logger:  logger.With().Str("service", "swap").Logger(),
		now:     time.Now,
	}
}

// CreateRequestInput contains the data needed to create a swap request.
type CreateRequestInput struct {
	SenderID     string
	SenderName   string
	ReceiverID   string
	ReceiverName string
	SkillOffered string
	SkillWanted  string
}

func (in CreateRequestInput) missingFields() []string {
	var fields []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"senderId", in.SenderID},
		{"senderName", in.SenderName},
		{"receiverId", in.ReceiverID},
		{"receiverName", in.ReceiverName},
		{"skillOffered", in.SkillOffered},
		{"skillWanted", in.SkillWanted},
	} {
		if f.value == "" {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// CreateRequest stores a new pending request. Names are snapshotted as given.
func (s *SwapService) CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.SwapRequest, error) {
	if fields := input.missingFields(); len(fields) > 0 {
		s.logger.Debug().Strs("fields", fields).Msg("swap request with missing fields")
		return nil, missing(fields...)
	}

	req := domain.NewSwapRequest(
		input.SenderID, input.SenderName,
		input.ReceiverID, input.ReceiverName,
		input.SkillOffered, input.SkillWanted,
		s.now(),
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if s.policy.VerifyParticipants {
			for _, id := range []string{input.SenderID, input.ReceiverID} {
				if _, err := s.users.GetByID(ctx, id); err != nil {
					return err
				}
			}
		}
		return s.swaps.Create(ctx, req)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Msg("failed to create swap request")
		}
		return nil, wrapStorage(err, "create swap request")
	}

	s.metrics.IncrementSwapRequestsCreated()
	s.logger.Info().
		Str("request_id", req.ID).
		Str("sender", req.SenderName).
		Str("receiver", req.ReceiverName).
		Msg("swap request created")

	return req, nil
}

// Get returns a single request.
func (s *SwapService) Get(ctx context.Context, requestID string) (*domain.SwapRequest, error) {
	req, err := s.swaps.GetByID(ctx, requestID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to get swap request")
		}
		return nil, wrapStorage(err, "get swap request")
	}
	return req, nil
}

// ListForUser returns requests the user sent or received, newest first.
func (s *SwapService) ListForUser(ctx context.Context, userID string) ([]*domain.SwapRequest, error) {
	reqs, err := s.swaps.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list swap requests")
		return nil, wrapStorage(err, "list swap requests")
	}
	return reqs, nil
}

// ListAll returns every request, newest first.
func (s *SwapService) ListAll(ctx context.Context) ([]*domain.SwapRequest, error) {
	reqs, err := s.swaps.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list all swap requests")
		return nil, wrapStorage(err, "list swap requests")
	}
	return reqs, nil
}

// Transition moves a request to accepted or rejected.
func (s *SwapService) Transition(ctx context.Context, requestID string, next domain.SwapStatus) (*domain.SwapRequest, error) {
	if !next.IsTransitionTarget() {
		s.logger.Debug().Str("request_id", requestID).Str("status", string(next)).Msg("invalid status update")
		return nil, domain.NewDomainError(domain.ErrInvalidStatus, "status must be accepted or rejected", string(next))
	}

	var updated *domain.SwapRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.swaps.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.CanTransition(next, s.policy.StrictTransitions); err != nil {
			return err
		}

		at := s.now().UTC()
		if s.policy.StrictTransitions {
			// A concurrent transition may have landed since the read.
			err = s.swaps.UpdateStatusFrom(ctx, requestID, req.Status, next, at)
		} else {
			err = s.swaps.UpdateStatus(ctx, requestID, next, at)
		}
		if err != nil {
			return err
		}
		req.Status = next
		req.UpdatedAt = at
		updated = req
		return nil
	})
	if err != nil {
		if domain.Kind(err) == domain.ErrStorage {
			s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to update swap request status")
		} else {
			s.logger.Debug().Err(err).Str("request_id", requestID).Msg("swap request transition refused")
		}
		return nil, wrapStorage(err, "transition swap request")
	}

	s.metrics.IncrementSwapTransition(string(next))
	s.logger.Info().
		Str("request_id", requestID).
		Str("status", string(next)).
		Msg("swap request transitioned")

	return updated, nil
}

// Delete hard-deletes a request. Feedback that references it is kept.
func (s *SwapService) Delete(ctx context.Context, requestID string) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.swaps.Delete(ctx, requestID)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to delete swap request")
		}
		return wrapStorage(err, "delete swap request")
	}

	s.logger.Info().Str("request_id", requestID).Msg("swap request deleted")
	return nil
}

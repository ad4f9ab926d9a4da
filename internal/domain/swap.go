package domain

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus represents the lifecycle state of a swap request.
type SwapStatus string

const (
	// SwapStatusPending is the initial state of every request.
	SwapStatusPending SwapStatus = "pending"

	// SwapStatusAccepted is terminal.
	SwapStatusAccepted SwapStatus = "accepted"

	// SwapStatusRejected is terminal.
	SwapStatusRejected SwapStatus = "rejected"
)

// IsValid returns true if the status is one of the known states.
func (s SwapStatus) IsValid() bool {
	switch s {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true for accepted and rejected.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusAccepted || s == SwapStatusRejected
}

// IsTransitionTarget returns true if a request may be moved into this state.
func (s SwapStatus) IsTransitionTarget() bool {
	return s.IsTerminal()
}

// SwapRequest is a proposed exchange of one skill for another between two users.
// Sender and receiver names are a snapshot taken at creation time and are not
// updated when either user later renames.
type SwapRequest struct {
	ID           string     `json:"id"`
	SenderID     string     `json:"senderId"`
	SenderName   string     `json:"senderName"`
	ReceiverID   string     `json:"receiverId"`
	ReceiverName string     `json:"receiverName"`
	SkillOffered string     `json:"skillOffered"`
	SkillWanted  string     `json:"skillWanted"`
	Status       SwapStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewSwapRequest creates a pending swap request.
func NewSwapRequest(senderID, senderName, receiverID, receiverName, skillOffered, skillWanted string, now time.Time) *SwapRequest {
	now = now.UTC()
	return &SwapRequest{
		ID:           uuid.NewString(),
		SenderID:     senderID,
		SenderName:   senderName,
		ReceiverID:   receiverID,
		ReceiverName: receiverName,
		SkillOffered: skillOffered,
		SkillWanted:  skillWanted,
		Status:       SwapStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Involves reports whether the user is the sender or receiver.
func (r *SwapRequest) Involves(userID string) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// CanTransition checks whether the request may move to next.
// In strict mode a terminal request can no longer change; otherwise a
// terminal status may be overwritten by the other terminal status.
func (r *SwapRequest) CanTransition(next SwapStatus, strict bool) error {
	if !next.IsTransitionTarget() {
		return NewDomainError(ErrInvalidStatus, "status must be accepted or rejected", string(next))
	}
	if strict && r.Status.IsTerminal() {
		return NewDomainError(ErrInvalidStatus, "request is already "+string(r.Status), r.ID)
	}
	return nil
}

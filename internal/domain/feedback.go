package domain

import (
	"time"

	"github.com/google/uuid"
)

// Default rating scale for feedback.
const (
	DefaultMinRating = 1
	DefaultMaxRating = 5
)

// Feedback is an append-only rating attached to a swap request.
// The link to the swap request and its participants is advisory only.
type Feedback struct {
	ID            string    `json:"id"`
	SwapRequestID string    `json:"swapRequestId"`
	GiverID       string    `json:"giverId"`
	ReceiverID    string    `json:"receiverId"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewFeedback creates a feedback entry.
func NewFeedback(swapRequestID, giverID, receiverID string, rating int, comment string, now time.Time) *Feedback {
	return &Feedback{
		ID:            uuid.NewString(),
		SwapRequestID: swapRequestID,
		GiverID:       giverID,
		ReceiverID:    receiverID,
		Rating:        rating,
		Comment:       comment,
		CreatedAt:     now.UTC(),
	}
}

// PlatformMessage is the single current broadcast message.
type PlatformMessage struct {
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package dto

import (
	"time"

	"github.com/google/uuid"
)

type MQPostCreatedMsg struct {
	PostID    int64     `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	PostTitle string    `json:"post_title"`
	CreatedAt time.Time `json:"created_at"`
}

// MQPaymentSucceededMsg is the opaque "payment succeeded" signal from
// the billing service. The checkout flow itself lives there; by the
// time this message arrives the money question is already settled and
// we only grant the purchased balance.
type MQPaymentSucceededMsg struct {
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	PaymentID string    `json:"payment_id"`
	PaidAt    time.Time `json:"paid_at"`
}

package dto

import (
	"time"

	"github.com/HappilyMart/deal-service/internal/model"
)

type EventType string

const (
	EventDealStatusChanged EventType = "post:dealStatusChanged"
	EventValidityUpdated   EventType = "post:validityUpdated"
	EventRevived           EventType = "post:revived"
)

// Event is one push message to a post owner's sessions. Payloads are
// always full snapshots of the affected fields, never deltas, so a
// consumer can merge last-write-wins on Timestamp alone.
type Event struct {
	Type      EventType   `json:"type"`
	PostID    int64       `json:"post_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type DealStatusChangedEvent struct {
	PostID           int64                  `json:"post_id"`
	DealToggleStatus model.DealToggleStatus `json:"deal_toggle_status"`
	DealResult       string                 `json:"deal_result"`
	PostStatus       model.PostStatus       `json:"post_status"`
	IsActive         bool                   `json:"is_active"`
}

type ValidityUpdatedEvent struct {
	PostID         int64            `json:"post_id"`
	ValidityPeriod int              `json:"validity_period"`
	ExpiresAt      time.Time        `json:"expires_at"`
	PostStatus     model.PostStatus `json:"post_status"`
	IsActive       bool             `json:"is_active"`
}

type RevivedEvent struct {
	PostID         int64     `json:"post_id"`
	ValidityPeriod int       `json:"validity_period"`
	ExpiresAt      time.Time `json:"expires_at"`
	Message        string    `json:"message"`
}

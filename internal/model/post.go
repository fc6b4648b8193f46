package model

import (
	"time"

	"github.com/google/uuid"
)

type DealToggleStatus string

const (
	DealPending DealToggleStatus = "pending"
	DealSuccess DealToggleStatus = "success"
	DealFail    DealToggleStatus = "fail"
)

// CanTransitionTo enforces the deal state machine: Pending may go to
// Success or Fail, and both of those may only go back to Pending.
// Success <-> Fail directly is never allowed.
func (s DealToggleStatus) CanTransitionTo(target DealToggleStatus) bool {
	switch s {
	case DealPending:
		return target == DealSuccess || target == DealFail
	case DealSuccess, DealFail:
		return target == DealPending
	default:
		return false
	}
}

// Result maps the stored toggle status to the label users see.
func (s DealToggleStatus) Result() string {
	switch s {
	case DealSuccess:
		return "Won"
	case DealFail:
		return "Failed"
	default:
		return "Pending"
	}
}

func ParseDealToggleStatus(s string) (DealToggleStatus, bool) {
	switch DealToggleStatus(s) {
	case DealPending, DealSuccess, DealFail:
		return DealToggleStatus(s), true
	}
	return "", false
}

type PostStatus string

const (
	PostActive  PostStatus = "active"
	PostExpired PostStatus = "expired"
	PostClosed  PostStatus = "closed"
)

type Post struct {
	ID                  int64            `json:"id"`
	OwnerID             uuid.UUID        `json:"owner_id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	CreditCost          int64            `json:"credit_cost"`
	DealToggleStatus    DealToggleStatus `json:"deal_toggle_status"`
	ValidityPeriod      int              `json:"validity_period"`
	ExpiresAt           time.Time        `json:"expires_at"`
	RenewedAt           time.Time        `json:"renewed_at"`
	ContactCount        int64            `json:"contact_count"`
	UnlockedDetailCount int64            `json:"unlocked_detail_count"`
	ClosedAt            *time.Time       `json:"closed_at"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// IsExpired is always derived from the clock, never read from a stored
// flag, so a post flips to expired the moment its window passes.
func (p *Post) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

func (p *Post) IsClosed() bool {
	return p.ClosedAt != nil
}

// Status derives the lifecycle state. Closed is terminal and wins over
// everything else.
func (p *Post) Status(now time.Time) PostStatus {
	if p.IsClosed() {
		return PostClosed
	}
	if p.IsExpired(now) {
		return PostExpired
	}
	return PostActive
}

func (p *Post) IsActive(now time.Time) bool {
	return p.Status(now) == PostActive
}

type FullPost struct {
	Post   Post       `json:"post"`
	Author UserAuthor `json:"author"`
}

type OwnerPostStats struct {
	Post                Post             `json:"post"`
	PostStatus          PostStatus       `json:"post_status"`
	DealResult          string           `json:"deal_result"`
	ContactCount        int64            `json:"contact_count"`
	UnlockedDetailCount int64            `json:"unlocked_detail_count"`
}

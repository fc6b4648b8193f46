package model

import (
	"time"

	"github.com/google/uuid"
)

type CreditKind string

const (
	CreditKindUnlock            CreditKind = "unlock"
	CreditKindCreate            CreditKind = "create"
	CreditKindSubscriptionPoint CreditKind = "subscription_point"
)

func ParseCreditKind(s string) (CreditKind, bool) {
	switch CreditKind(s) {
	case CreditKindUnlock, CreditKindCreate, CreditKindSubscriptionPoint:
		return CreditKind(s), true
	}
	return "", false
}

// CreditBalance holds the three distinct balances per user. They are
// never interchangeable: unlock credits pay for unlocks and revivals,
// create credits pay for posting, subscription points pay for deal
// outcome resets.
type CreditBalance struct {
	UserID             uuid.UUID `json:"user_id"`
	UnlockCredits      int64     `json:"unlock_credits"`
	CreateCredits      int64     `json:"create_credits"`
	SubscriptionPoints int64     `json:"subscription_points"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Total is the aggregate the UI shows as "credits".
func (b *CreditBalance) Total() int64 {
	return b.UnlockCredits + b.CreateCredits + b.SubscriptionPoints
}

func (b *CreditBalance) Of(kind CreditKind) int64 {
	switch kind {
	case CreditKindUnlock:
		return b.UnlockCredits
	case CreditKindCreate:
		return b.CreateCredits
	case CreditKindSubscriptionPoint:
		return b.SubscriptionPoints
	default:
		return 0
	}
}

type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "debit"
	LedgerEntryCredit LedgerEntryType = "credit"
)

// LedgerEntry is one row of the per-user transaction history. Balances
// are mutated only through debit/credit operations that also write one
// of these.
type LedgerEntry struct {
	ID           int64           `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	PostID       *int64          `json:"post_id,omitempty"`
	Kind         CreditKind      `json:"kind"`
	EntryType    LedgerEntryType `json:"entry_type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"created_at"`
}

type UnlockRecord struct {
	PostID       int64     `json:"post_id"`
	UserID       uuid.UUID `json:"user_id"`
	CreditsSpent int64     `json:"credits_spent"`
	UnlockedAt   time.Time `json:"unlocked_at"`
}

type ValidityTier struct {
	Days int   `json:"days"`
	Cost int64 `json:"cost"`
}

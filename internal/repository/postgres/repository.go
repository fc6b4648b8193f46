package postgres

import (
	"context"
	"time"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const MAX_LIMIT = 20

func maxLimit(limit *int) {
	if *limit > MAX_LIMIT || *limit <= 0 {
		*limit = MAX_LIMIT
	}
}

type Post interface {
	Create(ctx context.Context, post model.Post, createCost int64) (*model.Post, error)
	FindByID(ctx context.Context, id int64) (*model.FullPost, error)
	FindOwnerPostStats(ctx context.Context, ownerID uuid.UUID, limit int, offset int, now time.Time) ([]*model.OwnerPostStats, error)
	Close(ctx context.Context, postID int64, now time.Time) (*model.Post, error)
}

type Unlock interface {
	FindRecord(ctx context.Context, postID int64, userID uuid.UUID) (*model.UnlockRecord, error)
	Create(ctx context.Context, postID int64, userID uuid.UUID, creditCost int64, now time.Time) (*model.UnlockRecord, *model.CreditBalance, error)
}

type Deal interface {
	SetOutcome(ctx context.Context, postID int64, target model.DealToggleStatus, now time.Time) (*model.Post, error)
	ResetOutcome(ctx context.Context, postID int64, ownerID uuid.UUID, now time.Time) (*model.Post, *model.CreditBalance, error)
	ChangeValidity(ctx context.Context, postID int64, ownerID uuid.UUID, tier model.ValidityTier, now time.Time) (*model.Post, bool, error)
}

type Ledger interface {
	EnsureBalance(ctx context.Context, userID uuid.UUID) error
	FindBalance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error)
	Credit(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error)
	Debit(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error)
	FindEntries(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.LedgerEntry, error)
}

type UserCache interface {
	Create(ctx context.Context, cachedUser model.CachedUser) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CachedUser, error)
}

type PostgresRepository struct {
	Post
	Unlock
	Deal
	Ledger
	UserCache
}

func New(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		Post:      newPostRepo(db),
		Unlock:    newUnlockRepo(db),
		Deal:      newDealRepo(db),
		Ledger:    newLedgerRepo(db),
		UserCache: newUserCacheRepo(db),
	}
}

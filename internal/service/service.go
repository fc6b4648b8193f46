package service

import (
	"context"
	"time"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/rabbitmq"
	"github.com/HappilyMart/deal-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MAX_LIMIT = 20

func maxLimit(limit *int) {
	if *limit > MAX_LIMIT || *limit <= 0 {
		*limit = MAX_LIMIT
	}
}

// Clock supplies "now" to everything that derives expiry, so tests can
// move time without touching stored state.
type Clock func() time.Time

// EventPublisher pushes a full-snapshot event to the post owner's open
// sessions. Implemented by ws.Hub.
type EventPublisher interface {
	Publish(ownerID uuid.UUID, event dto.Event)
}

type Post interface {
	Create(ctx context.Context, ownerID uuid.UUID, input dto.CreatePostRequest) (*model.Post, error)
	FindByID(ctx context.Context, id int64, viewerID *uuid.UUID) (*dto.GetPost, error)
	Unlock(ctx context.Context, postID int64, userID uuid.UUID) (*dto.UnlockPostResponse, error)
	FindOwnerPostStats(ctx context.Context, ownerID uuid.UUID, limit int, offset int) ([]*model.OwnerPostStats, error)
	Close(ctx context.Context, postID int64, requesterID uuid.UUID) (*model.Post, error)
}

type Deal interface {
	SetOutcome(ctx context.Context, postID int64, requesterID uuid.UUID, target model.DealToggleStatus) (*model.Post, error)
	ResetOutcome(ctx context.Context, postID int64, requesterID uuid.UUID) (*model.Post, *model.CreditBalance, error)
	ChangeValidity(ctx context.Context, postID int64, requesterID uuid.UUID, days int) (*dto.ChangeValidityResponse, error)
	ValidityOptions() []model.ValidityTier
}

type Ledger interface {
	FindBalance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error)
	FindEntries(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.LedgerEntry, error)
	Grant(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error)
	StartConsume(ctx context.Context)
}

type UserCache interface {
	Create(ctx context.Context, cachedUser model.CachedUser) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CachedUser, error)
	EnsureFromClaims(ctx context.Context, id uuid.UUID, username string) (*model.CachedUser, error)
	StartConsume(ctx context.Context)
}

type Service struct {
	Post
	Deal
	Ledger
	UserCache
}

func New(logger *zap.Logger, repo *repository.Repository, mq *rabbitmq.MQConn, publisher EventPublisher, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		Post:      newPostService(logger, repo, mq, clock),
		Deal:      newDealService(logger, repo, publisher, clock),
		Ledger:    newLedgerService(logger, repo, mq),
		UserCache: newUserCacheService(logger, repo, mq),
	}
}

func (s *Service) StartConsumeAll(ctx context.Context) {
	go s.Ledger.StartConsume(ctx)
	go s.UserCache.StartConsume(ctx)
}

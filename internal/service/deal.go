package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/repository"
	"github.com/HappilyMart/deal-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// defaultValidityTiers is the compiled-in cost schedule; app.yaml may
// override it. The server owns these numbers, clients only display them.
var defaultValidityTiers = []model.ValidityTier{
	{Days: 7, Cost: 1},
	{Days: 15, Cost: 3},
	{Days: 30, Cost: 5},
}

type dealService struct {
	logger    *zap.Logger
	repo      *repository.Repository
	publisher EventPublisher
	clock     Clock
}

func newDealService(logger *zap.Logger, repo *repository.Repository, publisher EventPublisher, clock Clock) Deal {
	return &dealService{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		clock:     clock,
	}
}

func (s *dealService) ownedPost(ctx context.Context, postID int64, requesterID uuid.UUID) (*model.Post, error) {
	full, err := s.repo.Postgres.Post.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}

		s.logger.Sugar().Errorf("failed to find post(%d) from postgres: %s", postID, err.Error())
		return nil, ErrInternal
	}

	if full.Post.OwnerID != requesterID {
		return nil, model.ErrNotOwner
	}

	return &full.Post, nil
}

// SetOutcome records the deal result: Pending -> Success | Fail only.
// The repository re-checks the transition under a row lock, the check
// here just fails fast before opening a transaction.
func (s *dealService) SetOutcome(ctx context.Context, postID int64, requesterID uuid.UUID, target model.DealToggleStatus) (*model.Post, error) {
	post, err := s.ownedPost(ctx, postID, requesterID)
	if err != nil {
		return nil, err
	}

	if target == model.DealPending {
		// Going back to Pending is the costed reset path, not a plain set.
		return nil, model.ErrInvalidTransition
	}
	if !post.DealToggleStatus.CanTransitionTo(target) {
		return nil, model.ErrInvalidTransition
	}

	updated, err := s.repo.Postgres.Deal.SetOutcome(ctx, postID, target, s.clock())
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrPostClosed) {
			return nil, err
		}

		s.logger.Sugar().Errorf("failed to set post(%d) outcome to %s: %s", postID, target, err.Error())
		return nil, ErrInternal
	}

	s.invalidate(ctx, postID, requesterID)
	s.publishDealStatus(updated)

	return updated, nil
}

// ResetOutcome moves Success|Fail back to Pending for exactly one
// subscription point, charged at transition time and not refundable.
func (s *dealService) ResetOutcome(ctx context.Context, postID int64, requesterID uuid.UUID) (*model.Post, *model.CreditBalance, error) {
	post, err := s.ownedPost(ctx, postID, requesterID)
	if err != nil {
		return nil, nil, err
	}

	if !post.DealToggleStatus.CanTransitionTo(model.DealPending) {
		return nil, nil, model.ErrInvalidTransition
	}

	updated, balance, err := s.repo.Postgres.Deal.ResetOutcome(ctx, postID, requesterID, s.clock())
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrPostClosed) || model.IsInsufficientCredit(err) {
			return nil, nil, err
		}

		s.logger.Sugar().Errorf("failed to reset post(%d) outcome: %s", postID, err.Error())
		return nil, nil, ErrInternal
	}

	s.invalidate(ctx, postID, requesterID)
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.BalanceKey(requesterID.String())).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete balance(%s) from redis: %s", requesterID.String(), err.Error())
	}
	s.publishDealStatus(updated)

	return updated, balance, nil
}

// ChangeValidity sets a new active window counted forward from now,
// charging the tier cost. On an expired post this is a revival and
// additionally flips the derived status back to active.
func (s *dealService) ChangeValidity(ctx context.Context, postID int64, requesterID uuid.UUID, days int) (*dto.ChangeValidityResponse, error) {
	if _, err := s.ownedPost(ctx, postID, requesterID); err != nil {
		return nil, err
	}

	tier, ok := s.tierFor(days)
	if !ok {
		return nil, model.ErrInvalidValidity
	}

	updated, revived, err := s.repo.Postgres.Deal.ChangeValidity(ctx, postID, requesterID, tier, s.clock())
	if err != nil {
		if errors.Is(err, model.ErrPostClosed) || model.IsInsufficientCredit(err) {
			return nil, err
		}

		s.logger.Sugar().Errorf("failed to change post(%d) validity: %s", postID, err.Error())
		return nil, ErrInternal
	}

	s.invalidate(ctx, postID, requesterID)
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.BalanceKey(requesterID.String())).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete balance(%s) from redis: %s", requesterID.String(), err.Error())
	}

	now := s.clock()
	s.publisher.Publish(updated.OwnerID, dto.Event{
		Type:      dto.EventValidityUpdated,
		PostID:    updated.ID,
		Timestamp: now,
		Data: dto.ValidityUpdatedEvent{
			PostID:         updated.ID,
			ValidityPeriod: updated.ValidityPeriod,
			ExpiresAt:      updated.ExpiresAt,
			PostStatus:     updated.Status(now),
			IsActive:       updated.IsActive(now),
		},
	})

	message := fmt.Sprintf("validity set to %d days", tier.Days)
	if revived {
		message = fmt.Sprintf("post revived for %d days", tier.Days)
		s.publisher.Publish(updated.OwnerID, dto.Event{
			Type:      dto.EventRevived,
			PostID:    updated.ID,
			Timestamp: now,
			Data: dto.RevivedEvent{
				PostID:         updated.ID,
				ValidityPeriod: updated.ValidityPeriod,
				ExpiresAt:      updated.ExpiresAt,
				Message:        message,
			},
		})
	}

	return &dto.ChangeValidityResponse{
		Message: message,
		Post:    *updated,
		Revived: revived,
	}, nil
}

// ValidityOptions returns the authoritative tier table. Clients may
// estimate costs for display but this list always wins.
func (s *dealService) ValidityOptions() []model.ValidityTier {
	var tiers []model.ValidityTier
	if err := viper.UnmarshalKey("validity.tiers", &tiers); err != nil || len(tiers) == 0 {
		return defaultValidityTiers
	}
	return tiers
}

func (s *dealService) tierFor(days int) (model.ValidityTier, bool) {
	for _, tier := range s.ValidityOptions() {
		if tier.Days == days {
			return tier, true
		}
	}
	return model.ValidityTier{}, false
}

func (s *dealService) publishDealStatus(post *model.Post) {
	now := s.clock()
	s.publisher.Publish(post.OwnerID, dto.Event{
		Type:      dto.EventDealStatusChanged,
		PostID:    post.ID,
		Timestamp: now,
		Data: dto.DealStatusChangedEvent{
			PostID:           post.ID,
			DealToggleStatus: post.DealToggleStatus,
			DealResult:       post.DealToggleStatus.Result(),
			PostStatus:       post.Status(now),
			IsActive:         post.IsActive(now),
		},
	})
}

func (s *dealService) invalidate(ctx context.Context, postID int64, ownerID uuid.UUID) {
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.PostKey(postID)).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete post(%d) from redis: %s", postID, err.Error())
	}
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.OwnerStatsKey(ownerID.String(), MAX_LIMIT, 0)).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete owner(%s) stats from redis: %s", ownerID.String(), err.Error())
	}
}

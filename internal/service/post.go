package service

import (
	"context"
	"errors"
	"time"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/rabbitmq"
	"github.com/HappilyMart/deal-service/internal/repository"
	"github.com/HappilyMart/deal-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type postService struct {
	logger *zap.Logger
	repo   *repository.Repository
	mq     *rabbitmq.MQConn
	clock  Clock
}

func newPostService(logger *zap.Logger, repo *repository.Repository, mq *rabbitmq.MQConn, clock Clock) Post {
	return &postService{
		logger: logger,
		repo:   repo,
		mq:     mq,
		clock:  clock,
	}
}

func (s *postService) Create(ctx context.Context, ownerID uuid.UUID, input dto.CreatePostRequest) (*model.Post, error) {
	post := model.Post{
		OwnerID:        ownerID,
		Title:          input.Title,
		Description:    input.Description,
		CreditCost:     input.CreditCost,
		ValidityPeriod: input.ValidityPeriod,
	}

	createCost := viper.GetInt64("credits.create-cost")

	createdPost, err := s.repo.Postgres.Post.Create(ctx, post, createCost)
	if err != nil {
		if model.IsInsufficientCredit(err) {
			return nil, err
		}

		s.logger.Sugar().Errorf("failed to create user(%s) post: %s", ownerID.String(), err.Error())
		return nil, ErrInternal
	}

	s.invalidateOwnerStats(ctx, ownerID)

	if s.mq != nil {
		msg := dto.MQPostCreatedMsg{
			PostID:    createdPost.ID,
			UserID:    ownerID,
			PostTitle: createdPost.Title,
			CreatedAt: createdPost.CreatedAt,
		}
		if err := s.mq.PublishJSON(ctx, rabbitmq.POST_CREATED_QUEUE, msg); err != nil {
			s.logger.Sugar().Errorf("failed to publish post(%d) created message: %s", createdPost.ID, err.Error())
		}
	}

	return createdPost, nil
}

func (s *postService) findFullPost(ctx context.Context, id int64) (*model.FullPost, error) {
	cachedPost, err := redisrepo.Get[model.FullPost](s.repo.Redis.Default, ctx, redisrepo.PostKey(id))
	if err == nil {
		if cachedPost == nil {
			return nil, model.ErrPostNotFound
		}
		return cachedPost, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get post(%d) from redis: %s", id, err.Error())
	}

	post, err := s.repo.Postgres.Post.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}

		s.logger.Sugar().Errorf("failed to find post(%d) from postgres: %s", id, err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.PostKey(id), post, time.Hour); err != nil {
		s.logger.Sugar().Errorf("failed to set post(%d) in redis: %s", id, err.Error())
	}

	return post, nil
}

// FindByID returns the post with author contact fields redacted unless
// the viewer is the owner or holds an unlock record. The owner bypass
// is read-only: no record is ever written for it.
func (s *postService) FindByID(ctx context.Context, id int64, viewerID *uuid.UUID) (*dto.GetPost, error) {
	full, err := s.findFullPost(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	result := dto.GetPost{
		Post:       *full,
		PostStatus: full.Post.Status(now),
		DealResult: full.Post.DealToggleStatus.Result(),
	}

	if viewerID != nil {
		if *viewerID == full.Post.OwnerID {
			result.IsUnlocked = true
		} else if _, err := s.repo.Postgres.Unlock.FindRecord(ctx, id, *viewerID); err == nil {
			result.IsUnlocked = true
		}
	}

	if !result.IsUnlocked {
		result.Post.Author = result.Post.Author.Redacted()
	}

	return &result, nil
}

// Unlock grants the caller access to the post's contact fields for the
// post's credit cost. Idempotent per (post, user): a repeat call never
// debits a second time.
func (s *postService) Unlock(ctx context.Context, postID int64, userID uuid.UUID) (*dto.UnlockPostResponse, error) {
	full, err := s.repo.Postgres.Post.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}

		s.logger.Sugar().Errorf("failed to find post(%d) from postgres: %s", postID, err.Error())
		return nil, ErrInternal
	}

	// An empty author block means the owner's account is gone; there is
	// no contact detail left to sell.
	if full.Author.Username == "" {
		return nil, model.ErrAuthorUnavailable
	}

	now := s.clock()
	if full.Post.IsClosed() {
		return nil, model.ErrPostClosed
	}
	if full.Post.IsExpired(now) {
		return nil, model.ErrPostExpired
	}

	// Own post: implicit unlock, never charged. The UI hides the
	// control, this is the safeguard behind it.
	if userID == full.Post.OwnerID {
		return s.unlockResponse(ctx, "you own this post", full, userID)
	}

	if _, err := s.repo.Postgres.Unlock.FindRecord(ctx, postID, userID); err == nil {
		return s.unlockResponse(ctx, "post already unlocked", full, userID)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Sugar().Errorf("failed to find unlock record(%d, %s): %s", postID, userID.String(), err.Error())
		return nil, ErrInternal
	}

	_, balance, err := s.repo.Postgres.Unlock.Create(ctx, postID, userID, full.Post.CreditCost, now)
	if err != nil {
		if model.IsInsufficientCredit(err) {
			return nil, err
		}

		s.logger.Sugar().Errorf("failed to unlock post(%d) for user(%s): %s", postID, userID.String(), err.Error())
		return nil, ErrInternal
	}

	s.invalidatePost(ctx, postID)
	s.invalidateOwnerStats(ctx, full.Post.OwnerID)
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.BalanceKey(userID.String())).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete balance(%s) from redis: %s", userID.String(), err.Error())
	}

	full.Post.UnlockedDetailCount++
	full.Post.ContactCount++

	if balance == nil {
		// Lost a race with a concurrent unlock of the same pair; the
		// record exists and nothing was charged here.
		return s.unlockResponse(ctx, "post already unlocked", full, userID)
	}

	return &dto.UnlockPostResponse{
		Message:                "post unlocked",
		Post:                   *full,
		RemainingUnlockCredits: balance.UnlockCredits,
		RemainingCredits:       balance.Total(),
	}, nil
}

func (s *postService) unlockResponse(ctx context.Context, message string, full *model.FullPost, userID uuid.UUID) (*dto.UnlockPostResponse, error) {
	balance, err := s.repo.Postgres.Ledger.FindBalance(ctx, userID)
	if err != nil {
		s.logger.Sugar().Errorf("failed to find balance(%s): %s", userID.String(), err.Error())
		return nil, ErrInternal
	}

	return &dto.UnlockPostResponse{
		Message:                message,
		Post:                   *full,
		RemainingUnlockCredits: balance.UnlockCredits,
		RemainingCredits:       balance.Total(),
	}, nil
}

func (s *postService) FindOwnerPostStats(ctx context.Context, ownerID uuid.UUID, limit int, offset int) ([]*model.OwnerPostStats, error) {
	maxLimit(&limit)

	cachedStats, err := redisrepo.GetMany[model.OwnerPostStats](s.repo.Redis.Default, ctx, redisrepo.OwnerStatsKey(ownerID.String(), limit, offset))
	if err == nil {
		return cachedStats, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get owner(%s) stats from redis: %s", ownerID.String(), err.Error())
	}

	stats, err := s.repo.Postgres.Post.FindOwnerPostStats(ctx, ownerID, limit, offset, s.clock())
	if err != nil {
		s.logger.Sugar().Errorf("failed to find owner(%s) stats from postgres: %s", ownerID.String(), err.Error())
		return nil, ErrInternal
	}

	// Short TTL: the status column derives from the clock and must not
	// go stale for long.
	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.OwnerStatsKey(ownerID.String(), limit, offset), stats, time.Minute); err != nil {
		s.logger.Sugar().Errorf("failed to set owner(%s) stats in redis: %s", ownerID.String(), err.Error())
	}

	return stats, nil
}

func (s *postService) Close(ctx context.Context, postID int64, requesterID uuid.UUID) (*model.Post, error) {
	full, err := s.findFullPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if full.Post.OwnerID != requesterID {
		return nil, model.ErrNotOwner
	}

	post, err := s.repo.Postgres.Post.Close(ctx, postID, s.clock())
	if err != nil {
		if errors.Is(err, model.ErrPostClosed) {
			return nil, err
		}

		s.logger.Sugar().Errorf("failed to close post(%d): %s", postID, err.Error())
		return nil, ErrInternal
	}

	s.invalidatePost(ctx, postID)
	s.invalidateOwnerStats(ctx, requesterID)

	return post, nil
}

func (s *postService) invalidatePost(ctx context.Context, postID int64) {
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.PostKey(postID)).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete post(%d) from redis: %s", postID, err.Error())
	}
}

func (s *postService) invalidateOwnerStats(ctx context.Context, ownerID uuid.UUID) {
	// Stats pages are keyed by limit/offset; rather than tracking every
	// page, rely on the short TTL and drop the first page only.
	if err := s.repo.Redis.Default.Del(ctx, redisrepo.OwnerStatsKey(ownerID.String(), MAX_LIMIT, 0)).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete owner(%s) stats from redis: %s", ownerID.String(), err.Error())
	}
}

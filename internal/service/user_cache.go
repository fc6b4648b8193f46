package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/rabbitmq"
	"github.com/HappilyMart/deal-service/internal/repository"
	"github.com/HappilyMart/deal-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type userCacheService struct {
	logger *zap.Logger
	repo   *repository.Repository
	mq     *rabbitmq.MQConn
}

func newUserCacheService(logger *zap.Logger, repo *repository.Repository, mq *rabbitmq.MQConn) UserCache {
	return &userCacheService{
		logger: logger,
		repo:   repo,
		mq:     mq,
	}
}

func (s *userCacheService) Create(ctx context.Context, cachedUser model.CachedUser) error {
	if err := s.repo.Postgres.UserCache.Create(ctx, cachedUser); err != nil {
		s.logger.Sugar().Errorf("failed to create cached user(%s): %s", cachedUser.ID.String(), err.Error())
		return ErrInternal
	}

	return nil
}

func (s *userCacheService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if err := s.repo.Postgres.UserCache.Update(ctx, id, updates); err != nil {
		s.logger.Sugar().Errorf("failed to update cached user(%s): %s", id.String(), err.Error())
		return ErrInternal
	}

	if err := s.repo.Redis.Default.Del(ctx, redisrepo.UserCacheKey(id.String())).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete cached user(%s) from redis: %s", id.String(), err.Error())
	}

	return nil
}

func (s *userCacheService) FindByID(ctx context.Context, id uuid.UUID) (*model.CachedUser, error) {
	cachedUser, err := redisrepo.Get[model.CachedUser](s.repo.Redis.Default, ctx, redisrepo.UserCacheKey(id.String()))
	if err == nil {
		return cachedUser, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get cached user(%s) from redis: %s", id.String(), err.Error())
		return nil, ErrInternal
	}

	user, err := s.repo.Postgres.UserCache.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		s.logger.Sugar().Errorf("failed to get cached user(%s) from postgres: %s", id.String(), err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.UserCacheKey(id.String()), user, time.Hour); err != nil {
		s.logger.Sugar().Errorf("failed to set user(%s) in redis: %s", id.String(), err.Error())
		return nil, ErrInternal
	}

	return user, nil
}

// EnsureFromClaims backfills the cache from token claims on first
// sight of a user, and makes sure a ledger row exists for them.
func (s *userCacheService) EnsureFromClaims(ctx context.Context, id uuid.UUID, username string) (*model.CachedUser, error) {
	user, err := s.FindByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	created := model.CachedUser{
		ID:       id,
		Username: username,
	}
	if err := s.Create(ctx, created); err != nil {
		return nil, err
	}

	if err := s.repo.Postgres.Ledger.EnsureBalance(ctx, id); err != nil {
		s.logger.Sugar().Errorf("failed to ensure balance(%s): %s", id.String(), err.Error())
		return nil, ErrInternal
	}

	return &created, nil
}

func (s *userCacheService) StartConsume(ctx context.Context) {
	queue := rabbitmq.USER_INFO_UPDATED_QUEUE
	msgs, err := s.mq.Consume(queue)
	if err != nil {
		s.logger.Sugar().Fatalf("failed to start consume updates from queue(%s): %s", queue, err.Error())
	}

	for msg := range msgs {
		var data map[string]interface{}
		if err := json.Unmarshal(msg.Body, &data); err != nil {
			s.logger.Sugar().Errorf("failed to unmarshal json in queue(%s): %s", queue, err.Error())
			msg.Nack(false, false)
			continue
		}

		userIDString, exists := data["user_id"].(string)
		if !exists {
			s.logger.Sugar().Errorf("'user_id' field is not provided")
			msg.Nack(false, false)
			continue
		}
		userID, err := uuid.Parse(userIDString)
		if err != nil {
			s.logger.Sugar().Errorf("provided an invalid user_id")
			msg.Nack(false, false)
			continue
		}

		delete(data, "user_id")

		if err := s.Update(ctx, userID, data); err != nil {
			msg.Nack(false, true)
			continue
		}

		msg.Ack(false)
	}
}

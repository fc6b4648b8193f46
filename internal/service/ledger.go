package service

import (
	"context"
	"encoding/json"
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
	"go.uber.org/zap"
)

type ledgerService struct {
	logger *zap.Logger
	repo   *repository.Repository
	mq     *rabbitmq.MQConn
}

func newLedgerService(logger *zap.Logger, repo *repository.Repository, mq *rabbitmq.MQConn) Ledger {
	return &ledgerService{
		logger: logger,
		repo:   repo,
		mq:     mq,
	}
}

func (s *ledgerService) FindBalance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error) {
	cachedBalance, err := redisrepo.Get[model.CreditBalance](s.repo.Redis.Default, ctx, redisrepo.BalanceKey(userID.String()))
	if err == nil && cachedBalance != nil {
		return cachedBalance, nil
	}
	if err != nil && err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get balance(%s) from redis: %s", userID.String(), err.Error())
	}

	balance, err := s.repo.Postgres.Ledger.FindBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row yet just means nothing was ever granted.
			if err := s.repo.Postgres.Ledger.EnsureBalance(ctx, userID); err != nil {
				s.logger.Sugar().Errorf("failed to ensure balance(%s): %s", userID.String(), err.Error())
				return nil, ErrInternal
			}
			return &model.CreditBalance{UserID: userID}, nil
		}

		s.logger.Sugar().Errorf("failed to find balance(%s) from postgres: %s", userID.String(), err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.BalanceKey(userID.String()), balance, time.Minute); err != nil {
		s.logger.Sugar().Errorf("failed to set balance(%s) in redis: %s", userID.String(), err.Error())
	}

	return balance, nil
}

func (s *ledgerService) FindEntries(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.LedgerEntry, error) {
	maxLimit(&limit)

	entries, err := s.repo.Postgres.Ledger.FindEntries(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Sugar().Errorf("failed to find ledger entries(%s) from postgres: %s", userID.String(), err.Error())
		return nil, ErrInternal
	}

	return entries, nil
}

// Grant credits a balance. Used by refunds and by the billing consumer
// below; the unlock/reset/revival flows are one-way spends and never
// call this.
func (s *ledgerService) Grant(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error) {
	if err := s.repo.Postgres.Ledger.EnsureBalance(ctx, userID); err != nil {
		s.logger.Sugar().Errorf("failed to ensure balance(%s): %s", userID.String(), err.Error())
		return nil, ErrInternal
	}

	balance, err := s.repo.Postgres.Ledger.Credit(ctx, userID, kind, amount, reason)
	if err != nil {
		s.logger.Sugar().Errorf("failed to credit balance(%s): %s", userID.String(), err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.Del(ctx, redisrepo.BalanceKey(userID.String())).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to delete balance(%s) from redis: %s", userID.String(), err.Error())
	}

	return balance, nil
}

// StartConsume grants purchased credits from billing's payment
// succeeded queue. The payment itself is settled before the message is
// ever published, so consuming is just a grant.
func (s *ledgerService) StartConsume(ctx context.Context) {
	queue := rabbitmq.PAYMENT_SUCCEEDED_QUEUE
	msgs, err := s.mq.Consume(queue)
	if err != nil {
		s.logger.Sugar().Fatalf("failed to start consume from queue(%s): %s", queue, err.Error())
	}

	for msg := range msgs {
		var data dto.MQPaymentSucceededMsg
		if err := json.Unmarshal(msg.Body, &data); err != nil {
			s.logger.Sugar().Errorf("failed to unmarshal json in queue(%s): %s", queue, err.Error())
			msg.Nack(false, false)
			continue
		}

		kind, ok := model.ParseCreditKind(data.Kind)
		if !ok || data.Amount <= 0 {
			s.logger.Sugar().Errorf("invalid payment message in queue(%s): kind=%s amount=%d", queue, data.Kind, data.Amount)
			msg.Nack(false, false)
			continue
		}

		if _, err := s.Grant(ctx, data.UserID, kind, data.Amount, "payment "+data.PaymentID); err != nil {
			msg.Nack(false, true)
			continue
		}

		msg.Ack(false)
	}
}

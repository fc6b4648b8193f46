package postgres

import (
	"context"
	"time"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type unlockRepo struct {
	db *pgxpool.Pool
}

func newUnlockRepo(db *pgxpool.Pool) Unlock {
	return &unlockRepo{
		db: db,
	}
}

func (r *unlockRepo) FindRecord(ctx context.Context, postID int64, userID uuid.UUID) (*model.UnlockRecord, error) {
	var record model.UnlockRecord
	if err := r.db.QueryRow(
		ctx,
		"SELECT r.post_id, r.user_id, r.credits_spent, r.unlocked_at FROM unlock_records r WHERE r.post_id = $1 AND r.user_id = $2",
		postID,
		userID,
	).Scan(
		&record.PostID,
		&record.UserID,
		&record.CreditsSpent,
		&record.UnlockedAt,
	); err != nil {
		return nil, err
	}

	return &record, nil
}

// Create is the atomic (record, debit) pair of the unlock flow. The
// unique index on (post_id, user_id) plus ON CONFLICT DO NOTHING makes
// concurrent calls for the same pair converge on one record and one
// charge: the loser of the race sees zero inserted rows and returns the
// existing record without touching the ledger. If the debit fails the
// whole transaction rolls back and no record survives.
func (r *unlockRepo) Create(ctx context.Context, postID int64, userID uuid.UUID, creditCost int64, now time.Time) (*model.UnlockRecord, *model.CreditBalance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(
		ctx,
		"INSERT INTO unlock_records(post_id, user_id, credits_spent, unlocked_at) VALUES($1, $2, $3, $4) ON CONFLICT (post_id, user_id) DO NOTHING",
		postID,
		userID,
		creditCost,
		now,
	)
	if err != nil {
		return nil, nil, err
	}

	if tag.RowsAffected() == 0 {
		if err := tx.Rollback(ctx); err != nil {
			return nil, nil, err
		}

		record, err := r.FindRecord(ctx, postID, userID)
		if err != nil {
			return nil, nil, err
		}

		return record, nil, nil
	}

	// A zero-cost unlock still writes the record but no ledger entry;
	// ledger_entries only holds actual movements of credits.
	var balance *model.CreditBalance
	if creditCost > 0 {
		balance, err = debitTx(ctx, tx, userID, model.CreditKindUnlock, creditCost, &postID, "post unlock")
	} else {
		balance, err = lockBalance(ctx, tx, userID)
	}
	if err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(
		ctx,
		"UPDATE posts SET unlocked_detail_count = unlocked_detail_count + 1, contact_count = contact_count + 1 WHERE id = $1",
		postID,
	); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	return &model.UnlockRecord{
		PostID:       postID,
		UserID:       userID,
		CreditsSpent: creditCost,
		UnlockedAt:   now,
	}, balance, nil
}

package postgres

import (
	"context"
	"time"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dealRepo struct {
	db *pgxpool.Pool
}

func newDealRepo(db *pgxpool.Pool) Deal {
	return &dealRepo{
		db: db,
	}
}

// lockPost re-reads the post under a row lock so transition checks made
// inside the transaction cannot race another writer.
func lockPost(ctx context.Context, tx pgx.Tx, postID int64) (*model.Post, error) {
	var post model.Post
	if err := scanPost(tx.QueryRow(
		ctx,
		"SELECT "+postColumns+" FROM posts p WHERE p.id = $1 FOR UPDATE",
		postID,
	), &post); err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrPostNotFound
		}
		return nil, err
	}

	return &post, nil
}

func (r *dealRepo) SetOutcome(ctx context.Context, postID int64, target model.DealToggleStatus, now time.Time) (*model.Post, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, err
	}

	if post.IsClosed() {
		return nil, model.ErrPostClosed
	}
	if !post.DealToggleStatus.CanTransitionTo(target) || target == model.DealPending {
		return nil, model.ErrInvalidTransition
	}

	if _, err := tx.Exec(
		ctx,
		"UPDATE posts SET deal_toggle_status = $2, updated_at = $3 WHERE id = $1",
		postID,
		target,
		now,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	post.DealToggleStatus = target
	post.UpdatedAt = now
	return post, nil
}

// ResetOutcome moves a decided deal back to Pending, charging exactly
// one subscription point in the same transaction. An insufficient
// balance aborts everything: the status stays as it was.
func (r *dealRepo) ResetOutcome(ctx context.Context, postID int64, ownerID uuid.UUID, now time.Time) (*model.Post, *model.CreditBalance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, nil, err
	}

	if post.IsClosed() {
		return nil, nil, model.ErrPostClosed
	}
	if !post.DealToggleStatus.CanTransitionTo(model.DealPending) {
		return nil, nil, model.ErrInvalidTransition
	}

	balance, err := debitTx(ctx, tx, ownerID, model.CreditKindSubscriptionPoint, 1, &postID, "deal outcome reset")
	if err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(
		ctx,
		"UPDATE posts SET deal_toggle_status = $2, updated_at = $3 WHERE id = $1",
		postID,
		model.DealPending,
		now,
	); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	post.DealToggleStatus = model.DealPending
	post.UpdatedAt = now
	return post, balance, nil
}

// ChangeValidity recomputes the active window forward from now and
// charges the tier cost from the owner's unlock credits. Whether this
// was a revival is derived from the expiry at the moment the row is
// locked, never from a stored flag.
func (r *dealRepo) ChangeValidity(ctx context.Context, postID int64, ownerID uuid.UUID, tier model.ValidityTier, now time.Time) (*model.Post, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, false, err
	}

	if post.IsClosed() {
		return nil, false, model.ErrPostClosed
	}

	revived := post.IsExpired(now)

	if tier.Cost > 0 {
		if _, err := debitTx(ctx, tx, ownerID, model.CreditKindUnlock, tier.Cost, &postID, "validity change"); err != nil {
			return nil, false, err
		}
	}

	expiresAt := now.Add(time.Duration(tier.Days) * 24 * time.Hour)
	if _, err := tx.Exec(
		ctx,
		"UPDATE posts SET validity_period = $2, expires_at = $3, renewed_at = $4, updated_at = $4 WHERE id = $1",
		postID,
		tier.Days,
		expiresAt,
		now,
	); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	post.ValidityPeriod = tier.Days
	post.ExpiresAt = expiresAt
	post.RenewedAt = now
	post.UpdatedAt = now
	return post, revived, nil
}

package postgres

import (
	"context"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepo struct {
	db *pgxpool.Pool
}

func newLedgerRepo(db *pgxpool.Pool) Ledger {
	return &ledgerRepo{
		db: db,
	}
}

func kindColumn(kind model.CreditKind) string {
	switch kind {
	case model.CreditKindCreate:
		return "create_credits"
	case model.CreditKindSubscriptionPoint:
		return "subscription_points"
	default:
		return "unlock_credits"
	}
}

// lockBalance reads the user's balance row with FOR UPDATE, serializing
// every mutation of that user's ledger for the rest of the transaction.
// Different users' rows are independent and lock independently.
func lockBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.CreditBalance, error) {
	var balance model.CreditBalance
	balance.UserID = userID
	if err := tx.QueryRow(
		ctx,
		"SELECT b.unlock_credits, b.create_credits, b.subscription_points, b.updated_at FROM balances b WHERE b.user_id = $1 FOR UPDATE",
		userID,
	).Scan(
		&balance.UnlockCredits,
		&balance.CreateCredits,
		&balance.SubscriptionPoints,
		&balance.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &balance, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, entry model.LedgerEntry) error {
	_, err := tx.Exec(
		ctx,
		"INSERT INTO ledger_entries(user_id, post_id, kind, entry_type, amount, balance_after, reason) VALUES($1, $2, $3, $4, $5, $6, $7)",
		entry.UserID,
		entry.PostID,
		entry.Kind,
		entry.EntryType,
		entry.Amount,
		entry.BalanceAfter,
		entry.Reason,
	)
	return err
}

// debitTx is the single checked-then-applied debit used by every spend
// in the service: unlock, post creation, outcome reset, revival. It
// fails with InsufficientCreditError before touching anything, so a
// rolled back enclosing transaction leaves no trace of the charge.
func debitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind model.CreditKind, amount int64, postID *int64, reason string) (*model.CreditBalance, error) {
	balance, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if balance.Of(kind) < amount {
		return nil, &model.InsufficientCreditError{
			Kind:      kind,
			Required:  amount,
			Available: balance.Of(kind),
		}
	}

	column := kindColumn(kind)
	if err := tx.QueryRow(
		ctx,
		"UPDATE balances SET "+column+" = "+column+" - $2, updated_at = NOW() WHERE user_id = $1 RETURNING "+column+", updated_at",
		userID,
		amount,
	).Scan(balanceField(balance, kind), &balance.UpdatedAt); err != nil {
		return nil, err
	}

	if err := insertEntry(ctx, tx, model.LedgerEntry{
		UserID:       userID,
		PostID:       postID,
		Kind:         kind,
		EntryType:    model.LedgerEntryDebit,
		Amount:       amount,
		BalanceAfter: balance.Of(kind),
		Reason:       reason,
	}); err != nil {
		return nil, err
	}

	return balance, nil
}

func creditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind model.CreditKind, amount int64, postID *int64, reason string) (*model.CreditBalance, error) {
	balance, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	column := kindColumn(kind)
	if err := tx.QueryRow(
		ctx,
		"UPDATE balances SET "+column+" = "+column+" + $2, updated_at = NOW() WHERE user_id = $1 RETURNING "+column+", updated_at",
		userID,
		amount,
	).Scan(balanceField(balance, kind), &balance.UpdatedAt); err != nil {
		return nil, err
	}

	if err := insertEntry(ctx, tx, model.LedgerEntry{
		UserID:       userID,
		PostID:       postID,
		Kind:         kind,
		EntryType:    model.LedgerEntryCredit,
		Amount:       amount,
		BalanceAfter: balance.Of(kind),
		Reason:       reason,
	}); err != nil {
		return nil, err
	}

	return balance, nil
}

func balanceField(balance *model.CreditBalance, kind model.CreditKind) *int64 {
	switch kind {
	case model.CreditKindCreate:
		return &balance.CreateCredits
	case model.CreditKindSubscriptionPoint:
		return &balance.SubscriptionPoints
	default:
		return &balance.UnlockCredits
	}
}

func (r *ledgerRepo) EnsureBalance(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(
		ctx,
		"INSERT INTO balances(user_id, unlock_credits, create_credits, subscription_points) VALUES($1, 0, 0, 0) ON CONFLICT (user_id) DO NOTHING",
		userID,
	)
	return err
}

func (r *ledgerRepo) FindBalance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error) {
	var balance model.CreditBalance
	balance.UserID = userID
	if err := r.db.QueryRow(
		ctx,
		"SELECT b.unlock_credits, b.create_credits, b.subscription_points, b.updated_at FROM balances b WHERE b.user_id = $1",
		userID,
	).Scan(
		&balance.UnlockCredits,
		&balance.CreateCredits,
		&balance.SubscriptionPoints,
		&balance.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &balance, nil
}

func (r *ledgerRepo) Credit(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	balance, err := creditTx(ctx, tx, userID, kind, amount, nil, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return balance, nil
}

func (r *ledgerRepo) Debit(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	balance, err := debitTx(ctx, tx, userID, kind, amount, nil, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return balance, nil
}

func (r *ledgerRepo) FindEntries(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.LedgerEntry, error) {
	maxLimit(&limit)

	rows, err := r.db.Query(
		ctx,
		`SELECT
		e.id, e.user_id, e.post_id, e.kind, e.entry_type, e.amount, e.balance_after, e.reason, e.created_at
		FROM ledger_entries e
		WHERE e.user_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2
		OFFSET $3`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.PostID,
			&entry.Kind,
			&entry.EntryType,
			&entry.Amount,
			&entry.BalanceAfter,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

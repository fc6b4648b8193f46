package postgres

import (
	"context"
	"time"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postRepo struct {
	db *pgxpool.Pool
}

func newPostRepo(db *pgxpool.Pool) Post {
	return &postRepo{
		db: db,
	}
}

const postColumns = `p.id, p.owner_id, p.title, p.description, p.credit_cost, p.deal_toggle_status,
	p.validity_period, p.expires_at, p.renewed_at, p.contact_count, p.unlocked_detail_count,
	p.closed_at, p.created_at, p.updated_at`

func scanPost(row pgx.Row, post *model.Post) error {
	return row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.Title,
		&post.Description,
		&post.CreditCost,
		&post.DealToggleStatus,
		&post.ValidityPeriod,
		&post.ExpiresAt,
		&post.RenewedAt,
		&post.ContactCount,
		&post.UnlockedDetailCount,
		&post.ClosedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
}

// Create inserts the post and charges the owner's create credits in the
// same transaction; an unpaid post never becomes visible.
func (r *postRepo) Create(ctx context.Context, post model.Post, createCost int64) (*model.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.RenewedAt = now
	post.DealToggleStatus = model.DealPending
	post.ExpiresAt = now.Add(time.Duration(post.ValidityPeriod) * 24 * time.Hour)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if createCost > 0 {
		if _, err := debitTx(ctx, tx, post.OwnerID, model.CreditKindCreate, createCost, nil, "post creation"); err != nil {
			return nil, err
		}
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO posts(owner_id, title, description, credit_cost, deal_toggle_status, validity_period, expires_at, renewed_at, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		post.OwnerID,
		post.Title,
		post.Description,
		post.CreditCost,
		post.DealToggleStatus,
		post.ValidityPeriod,
		post.ExpiresAt,
		post.RenewedAt,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &post, nil
}

// FindByID left-joins the author so a post whose owner account has
// been removed still comes back, with an empty author block. Callers
// treat that as AuthorUnavailable.
func (r *postRepo) FindByID(ctx context.Context, id int64) (*model.FullPost, error) {
	var full model.FullPost
	var username, phone, email *string
	if err := r.db.QueryRow(
		ctx,
		`SELECT
		`+postColumns+`, u.username, u.display_name, u.avatar_url, u.phone, u.email
		FROM posts p
		LEFT JOIN cached_users u ON p.owner_id = u.id
		WHERE p.id = $1`,
		id,
	).Scan(
		&full.Post.ID,
		&full.Post.OwnerID,
		&full.Post.Title,
		&full.Post.Description,
		&full.Post.CreditCost,
		&full.Post.DealToggleStatus,
		&full.Post.ValidityPeriod,
		&full.Post.ExpiresAt,
		&full.Post.RenewedAt,
		&full.Post.ContactCount,
		&full.Post.UnlockedDetailCount,
		&full.Post.ClosedAt,
		&full.Post.CreatedAt,
		&full.Post.UpdatedAt,
		&username,
		&full.Author.DisplayName,
		&full.Author.AvatarURL,
		&phone,
		&email,
	); err != nil {
		return nil, err
	}

	if username != nil {
		full.Author.Username = *username
	}
	full.Author.Phone = phone
	full.Author.Email = email

	return &full, nil
}

func (r *postRepo) FindOwnerPostStats(ctx context.Context, ownerID uuid.UUID, limit int, offset int, now time.Time) ([]*model.OwnerPostStats, error) {
	maxLimit(&limit)

	rows, err := r.db.Query(
		ctx,
		`SELECT
		`+postColumns+`
		FROM posts p
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
		OFFSET $3`,
		ownerID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.OwnerPostStats
	for rows.Next() {
		var post model.Post
		if err := scanPost(rows, &post); err != nil {
			return nil, err
		}

		stats = append(stats, &model.OwnerPostStats{
			Post:                post,
			PostStatus:          post.Status(now),
			DealResult:          post.DealToggleStatus.Result(),
			ContactCount:        post.ContactCount,
			UnlockedDetailCount: post.UnlockedDetailCount,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *postRepo) Close(ctx context.Context, postID int64, now time.Time) (*model.Post, error) {
	var post model.Post
	if err := scanPost(r.db.QueryRow(
		ctx,
		`UPDATE posts p SET closed_at = $2, updated_at = $2 WHERE p.id = $1 AND p.closed_at IS NULL
		RETURNING `+postColumns,
		postID,
		now,
	), &post); err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrPostClosed
		}
		return nil, err
	}

	return &post, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/repository"
	"github.com/HappilyMart/deal-service/internal/repository/postgres"
	"github.com/HappilyMart/deal-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// fakeStore is an in-memory stand-in for postgres. One mutex covers
// everything, which mirrors the serialization the real repos get from
// row locks.
type fakeStore struct {
	mu       sync.Mutex
	posts    map[int64]*model.FullPost
	records  map[string]model.UnlockRecord
	balances map[uuid.UUID]*model.CreditBalance
	entries  []model.LedgerEntry
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:    make(map[int64]*model.FullPost),
		records:  make(map[string]model.UnlockRecord),
		balances: make(map[uuid.UUID]*model.CreditBalance),
		nextID:   1,
	}
}

func recordKey(postID int64, userID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", postID, userID)
}

func (st *fakeStore) addPost(post model.Post, author model.UserAuthor) *model.FullPost {
	st.mu.Lock()
	defer st.mu.Unlock()
	if post.ID == 0 {
		post.ID = st.nextID
		st.nextID++
	}
	full := &model.FullPost{Post: post, Author: author}
	st.posts[post.ID] = full
	return full
}

func (st *fakeStore) setBalance(userID uuid.UUID, balance model.CreditBalance) {
	st.mu.Lock()
	defer st.mu.Unlock()
	balance.UserID = userID
	st.balances[userID] = &balance
}

func (st *fakeStore) balance(userID uuid.UUID) model.CreditBalance {
	st.mu.Lock()
	defer st.mu.Unlock()
	if b, ok := st.balances[userID]; ok {
		return *b
	}
	return model.CreditBalance{UserID: userID}
}

func (st *fakeStore) debitCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	count := 0
	for _, entry := range st.entries {
		if entry.EntryType == model.LedgerEntryDebit {
			count++
		}
	}
	return count
}

// debitLocked assumes st.mu is held. Like the ledger_entries CHECK it
// refuses zero or negative amounts.
func (st *fakeStore) debitLocked(userID uuid.UUID, kind model.CreditKind, amount int64, postID *int64) (*model.CreditBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("ledger entry amount must be positive, got %d", amount)
	}

	balance, ok := st.balances[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	if balance.Of(kind) < amount {
		return nil, &model.InsufficientCreditError{
			Kind:      kind,
			Required:  amount,
			Available: balance.Of(kind),
		}
	}

	switch kind {
	case model.CreditKindUnlock:
		balance.UnlockCredits -= amount
	case model.CreditKindCreate:
		balance.CreateCredits -= amount
	case model.CreditKindSubscriptionPoint:
		balance.SubscriptionPoints -= amount
	}

	st.entries = append(st.entries, model.LedgerEntry{
		UserID:       userID,
		PostID:       postID,
		Kind:         kind,
		EntryType:    model.LedgerEntryDebit,
		Amount:       amount,
		BalanceAfter: balance.Of(kind),
	})

	copied := *balance
	return &copied, nil
}

type fakePostRepo struct{ st *fakeStore }

func (r *fakePostRepo) Create(ctx context.Context, post model.Post, createCost int64) (*model.Post, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if createCost > 0 {
		if _, err := r.st.debitLocked(post.OwnerID, model.CreditKindCreate, createCost, nil); err != nil {
			return nil, err
		}
	}

	post.ID = r.st.nextID
	r.st.nextID++
	post.DealToggleStatus = model.DealPending
	r.st.posts[post.ID] = &model.FullPost{Post: post}
	return &post, nil
}

func (r *fakePostRepo) FindByID(ctx context.Context, id int64) (*model.FullPost, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	full, ok := r.st.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *full
	return &copied, nil
}

func (r *fakePostRepo) FindOwnerPostStats(ctx context.Context, ownerID uuid.UUID, limit int, offset int, now time.Time) ([]*model.OwnerPostStats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var stats []*model.OwnerPostStats
	for _, full := range r.st.posts {
		if full.Post.OwnerID != ownerID {
			continue
		}
		stats = append(stats, &model.OwnerPostStats{
			Post:                full.Post,
			PostStatus:          full.Post.Status(now),
			DealResult:          full.Post.DealToggleStatus.Result(),
			ContactCount:        full.Post.ContactCount,
			UnlockedDetailCount: full.Post.UnlockedDetailCount,
		})
	}
	return stats, nil
}

func (r *fakePostRepo) Close(ctx context.Context, postID int64, now time.Time) (*model.Post, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	full, ok := r.st.posts[postID]
	if !ok || full.Post.IsClosed() {
		return nil, model.ErrPostClosed
	}
	full.Post.ClosedAt = &now
	full.Post.UpdatedAt = now
	copied := full.Post
	return &copied, nil
}

type fakeUnlockRepo struct{ st *fakeStore }

func (r *fakeUnlockRepo) FindRecord(ctx context.Context, postID int64, userID uuid.UUID) (*model.UnlockRecord, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	record, ok := r.st.records[recordKey(postID, userID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &record, nil
}

func (r *fakeUnlockRepo) Create(ctx context.Context, postID int64, userID uuid.UUID, creditCost int64, now time.Time) (*model.UnlockRecord, *model.CreditBalance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	key := recordKey(postID, userID)
	if record, ok := r.st.records[key]; ok {
		return &record, nil, nil
	}

	var balance *model.CreditBalance
	if creditCost > 0 {
		debited, err := r.st.debitLocked(userID, model.CreditKindUnlock, creditCost, &postID)
		if err != nil {
			return nil, nil, err
		}
		balance = debited
	} else {
		current, ok := r.st.balances[userID]
		if !ok {
			return nil, nil, pgx.ErrNoRows
		}
		copied := *current
		balance = &copied
	}

	record := model.UnlockRecord{
		PostID:       postID,
		UserID:       userID,
		CreditsSpent: creditCost,
		UnlockedAt:   now,
	}
	r.st.records[key] = record

	if full, ok := r.st.posts[postID]; ok {
		full.Post.UnlockedDetailCount++
		full.Post.ContactCount++
	}

	return &record, balance, nil
}

type fakeDealRepo struct{ st *fakeStore }

func (r *fakeDealRepo) SetOutcome(ctx context.Context, postID int64, target model.DealToggleStatus, now time.Time) (*model.Post, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	full, ok := r.st.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	if full.Post.IsClosed() {
		return nil, model.ErrPostClosed
	}
	if !full.Post.DealToggleStatus.CanTransitionTo(target) || target == model.DealPending {
		return nil, model.ErrInvalidTransition
	}

	full.Post.DealToggleStatus = target
	full.Post.UpdatedAt = now
	copied := full.Post
	return &copied, nil
}

func (r *fakeDealRepo) ResetOutcome(ctx context.Context, postID int64, ownerID uuid.UUID, now time.Time) (*model.Post, *model.CreditBalance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	full, ok := r.st.posts[postID]
	if !ok {
		return nil, nil, model.ErrPostNotFound
	}
	if full.Post.IsClosed() {
		return nil, nil, model.ErrPostClosed
	}
	if !full.Post.DealToggleStatus.CanTransitionTo(model.DealPending) {
		return nil, nil, model.ErrInvalidTransition
	}

	balance, err := r.st.debitLocked(ownerID, model.CreditKindSubscriptionPoint, 1, &postID)
	if err != nil {
		return nil, nil, err
	}

	full.Post.DealToggleStatus = model.DealPending
	full.Post.UpdatedAt = now
	copied := full.Post
	return &copied, balance, nil
}

func (r *fakeDealRepo) ChangeValidity(ctx context.Context, postID int64, ownerID uuid.UUID, tier model.ValidityTier, now time.Time) (*model.Post, bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	full, ok := r.st.posts[postID]
	if !ok {
		return nil, false, model.ErrPostNotFound
	}
	if full.Post.IsClosed() {
		return nil, false, model.ErrPostClosed
	}

	revived := full.Post.IsExpired(now)

	if tier.Cost > 0 {
		if _, err := r.st.debitLocked(ownerID, model.CreditKindUnlock, tier.Cost, &postID); err != nil {
			return nil, false, err
		}
	}

	full.Post.ValidityPeriod = tier.Days
	full.Post.ExpiresAt = now.Add(time.Duration(tier.Days) * 24 * time.Hour)
	full.Post.RenewedAt = now
	full.Post.UpdatedAt = now
	copied := full.Post
	return &copied, revived, nil
}

type fakeLedgerRepo struct{ st *fakeStore }

func (r *fakeLedgerRepo) EnsureBalance(ctx context.Context, userID uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.balances[userID]; !ok {
		r.st.balances[userID] = &model.CreditBalance{UserID: userID}
	}
	return nil
}

func (r *fakeLedgerRepo) FindBalance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	balance, ok := r.st.balances[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *balance
	return &copied, nil
}

func (r *fakeLedgerRepo) Credit(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	balance, ok := r.st.balances[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	switch kind {
	case model.CreditKindUnlock:
		balance.UnlockCredits += amount
	case model.CreditKindCreate:
		balance.CreateCredits += amount
	case model.CreditKindSubscriptionPoint:
		balance.SubscriptionPoints += amount
	}

	r.st.entries = append(r.st.entries, model.LedgerEntry{
		UserID:       userID,
		Kind:         kind,
		EntryType:    model.LedgerEntryCredit,
		Amount:       amount,
		BalanceAfter: balance.Of(kind),
		Reason:       reason,
	})

	copied := *balance
	return &copied, nil
}

func (r *fakeLedgerRepo) Debit(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.debitLocked(userID, kind, amount, nil)
}

func (r *fakeLedgerRepo) FindEntries(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.LedgerEntry, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var entries []*model.LedgerEntry
	for i := len(r.st.entries) - 1; i >= 0; i-- {
		if r.st.entries[i].UserID != userID {
			continue
		}
		copied := r.st.entries[i]
		entries = append(entries, &copied)
	}
	return entries, nil
}

type fakeUserCacheRepo struct{ st *fakeStore }

func (r *fakeUserCacheRepo) Create(ctx context.Context, cachedUser model.CachedUser) error {
	return nil
}

func (r *fakeUserCacheRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeUserCacheRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CachedUser, error) {
	return nil, pgx.ErrNoRows
}

// nilRedis always misses, pushing every read through to the store.
type nilRedis struct{}

func (nilRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (nilRedis) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (nilRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func (nilRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntResult(0, nil)
}

var _ redisrepo.Default = nilRedis{}

type capturePublisher struct {
	mu     sync.Mutex
	events []dto.Event
}

func (p *capturePublisher) Publish(ownerID uuid.UUID, event dto.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) all() []dto.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.Event(nil), p.events...)
}

func newFakeRepository(st *fakeStore) *repository.Repository {
	return &repository.Repository{
		Postgres: &postgres.PostgresRepository{
			Post:      &fakePostRepo{st: st},
			Unlock:    &fakeUnlockRepo{st: st},
			Deal:      &fakeDealRepo{st: st},
			Ledger:    &fakeLedgerRepo{st: st},
			UserCache: &fakeUserCacheRepo{st: st},
		},
		Redis: &repository.RedisRepository{
			Default: nilRedis{},
		},
	}
}

func fixedClock(now time.Time) Clock {
	return func() time.Time { return now }
}

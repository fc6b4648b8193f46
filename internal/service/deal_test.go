package service

import (
	"context"
	"testing"
	"time"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealSetOutcomeFromPending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	pub := &capturePublisher{}
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now)

	services := newTestService(st, pub, now)

	updated, err := services.Deal.SetOutcome(context.Background(), full.Post.ID, ownerID, model.DealSuccess)
	require.NoError(t, err)
	assert.Equal(t, model.DealSuccess, updated.DealToggleStatus)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, dto.EventDealStatusChanged, events[0].Type)
	data, ok := events[0].Data.(dto.DealStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "Won", data.DealResult)
	assert.True(t, data.IsActive)
}

func TestDealSetOutcomeRejectsCrossToggleAndPendingTarget(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now)

	services := newTestService(st, nil, now)

	// Pending must come through the costed reset, not a plain set.
	_, err := services.Deal.SetOutcome(context.Background(), full.Post.ID, ownerID, model.DealPending)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = services.Deal.SetOutcome(context.Background(), full.Post.ID, ownerID, model.DealSuccess)
	require.NoError(t, err)

	// Success -> Fail directly is never allowed.
	_, err = services.Deal.SetOutcome(context.Background(), full.Post.ID, ownerID, model.DealFail)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestDealSetOutcomeRequiresOwner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	full := activePost(st, uuid.New(), 1, now)

	services := newTestService(st, nil, now)

	_, err := services.Deal.SetOutcome(context.Background(), full.Post.ID, uuid.New(), model.DealSuccess)
	assert.ErrorIs(t, err, model.ErrNotOwner)

	_, err = services.Deal.SetOutcome(context.Background(), 404, uuid.New(), model.DealSuccess)
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}

func TestDealResetOutcomeCostsOneSubscriptionPoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	pub := &capturePublisher{}
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now)
	st.setBalance(ownerID, model.CreditBalance{SubscriptionPoints: 1})

	services := newTestService(st, pub, now)

	_, err := services.Deal.SetOutcome(context.Background(), full.Post.ID, ownerID, model.DealSuccess)
	require.NoError(t, err)

	updated, balance, err := services.Deal.ResetOutcome(context.Background(), full.Post.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, model.DealPending, updated.DealToggleStatus)
	assert.Equal(t, int64(0), balance.SubscriptionPoints)

	// The point is spent at transition time and not refunded.
	_, err = services.Deal.SetOutcome(context.Background(), full.Post.ID, ownerID, model.DealFail)
	require.NoError(t, err)
	_, _, err = services.Deal.ResetOutcome(context.Background(), full.Post.ID, ownerID)
	assert.True(t, model.IsInsufficientCredit(err))
	assert.Equal(t, model.DealFail, st.posts[full.Post.ID].Post.DealToggleStatus)
}

func TestDealResetOutcomeFromPendingNeverCharges(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now)
	st.setBalance(ownerID, model.CreditBalance{SubscriptionPoints: 3})

	services := newTestService(st, nil, now)

	_, _, err := services.Deal.ResetOutcome(context.Background(), full.Post.ID, ownerID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, int64(3), st.balance(ownerID).SubscriptionPoints)
}

func TestDealChangeValidityRevivesExpiredPost(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	pub := &capturePublisher{}
	ownerID := uuid.New()
	// Expired ten days ago.
	full := activePost(st, ownerID, 1, now.Add(-17*24*time.Hour))
	st.setBalance(ownerID, model.CreditBalance{UnlockCredits: 5})

	services := newTestService(st, pub, now)

	resp, err := services.Deal.ChangeValidity(context.Background(), full.Post.ID, ownerID, 15)
	require.NoError(t, err)
	assert.True(t, resp.Revived)
	assert.Equal(t, 15, resp.Post.ValidityPeriod)
	assert.Equal(t, now.Add(15*24*time.Hour), resp.Post.ExpiresAt)
	assert.Equal(t, model.PostActive, resp.Post.Status(now))
	// Tier {15 days, 3 credits}.
	assert.Equal(t, int64(2), st.balance(ownerID).UnlockCredits)

	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, dto.EventValidityUpdated, events[0].Type)
	assert.Equal(t, dto.EventRevived, events[1].Type)
	revived, ok := events[1].Data.(dto.RevivedEvent)
	require.True(t, ok)
	assert.Equal(t, now.Add(15*24*time.Hour), revived.ExpiresAt)
}

func TestDealChangeValidityOnActivePostExtendsFromNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	pub := &capturePublisher{}
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now)
	st.setBalance(ownerID, model.CreditBalance{UnlockCredits: 5})

	services := newTestService(st, pub, now)

	resp, err := services.Deal.ChangeValidity(context.Background(), full.Post.ID, ownerID, 7)
	require.NoError(t, err)
	assert.False(t, resp.Revived)
	// Counted forward from now, not stacked on the old window.
	assert.Equal(t, now.Add(7*24*time.Hour), resp.Post.ExpiresAt)
	assert.Equal(t, int64(4), st.balance(ownerID).UnlockCredits)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, dto.EventValidityUpdated, events[0].Type)
}

func TestDealChangeValidityRejectsUnknownTier(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now)
	st.setBalance(ownerID, model.CreditBalance{UnlockCredits: 5})

	services := newTestService(st, nil, now)

	_, err := services.Deal.ChangeValidity(context.Background(), full.Post.ID, ownerID, 10)
	assert.ErrorIs(t, err, model.ErrInvalidValidity)
	assert.Equal(t, int64(5), st.balance(ownerID).UnlockCredits)
}

func TestDealChangeValidityInsufficientCreditsLeavesExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	ownerID := uuid.New()
	full := activePost(st, ownerID, 1, now.Add(-17*24*time.Hour))
	st.setBalance(ownerID, model.CreditBalance{UnlockCredits: 2})

	services := newTestService(st, nil, now)

	before := st.posts[full.Post.ID].Post.ExpiresAt
	_, err := services.Deal.ChangeValidity(context.Background(), full.Post.ID, ownerID, 15)
	assert.True(t, model.IsInsufficientCredit(err))
	assert.Equal(t, before, st.posts[full.Post.ID].Post.ExpiresAt)
	assert.Equal(t, int64(2), st.balance(ownerID).UnlockCredits)
}

func TestDealValidityOptionsDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	services := newTestService(newFakeStore(), nil, now)

	tiers := services.Deal.ValidityOptions()
	require.Len(t, tiers, 3)
	assert.Equal(t, model.ValidityTier{Days: 7, Cost: 1}, tiers[0])
	assert.Equal(t, model.ValidityTier{Days: 15, Cost: 3}, tiers[1])
	assert.Equal(t, model.ValidityTier{Days: 30, Cost: 5}, tiers[2])
}

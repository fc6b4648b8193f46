package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedgerService struct {
	entries    []*model.LedgerEntry
	lastLimit  int
	lastOffset int
	lastUserID uuid.UUID
}

func (f *fakeLedgerService) FindBalance(ctx context.Context, userID uuid.UUID) (*model.CreditBalance, error) {
	return &model.CreditBalance{UserID: userID}, nil
}

func (f *fakeLedgerService) FindEntries(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.LedgerEntry, error) {
	f.lastUserID = userID
	f.lastLimit = limit
	f.lastOffset = offset
	return f.entries, nil
}

func (f *fakeLedgerService) Grant(ctx context.Context, userID uuid.UUID, kind model.CreditKind, amount int64, reason string) (*model.CreditBalance, error) {
	return &model.CreditBalance{UserID: userID}, nil
}

func (f *fakeLedgerService) StartConsume(ctx context.Context) {}

func TestUserLedgerReturnsEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)

	postID := int64(7)
	fake := &fakeLedgerService{
		entries: []*model.LedgerEntry{
			{
				ID:           2,
				PostID:       &postID,
				Kind:         model.CreditKindUnlock,
				EntryType:    model.LedgerEntryDebit,
				Amount:       3,
				BalanceAfter: 2,
				Reason:       "post unlock",
			},
			{
				ID:           1,
				Kind:         model.CreditKindUnlock,
				EntryType:    model.LedgerEntryCredit,
				Amount:       5,
				BalanceAfter: 5,
				Reason:       "purchase",
			},
		},
	}

	h := New(&service.Service{Ledger: fake}, nil)
	userID := uuid.New()

	r := gin.New()
	r.GET("/api/v1/user/ledger", func(c *gin.Context) {
		c.Set("cached-user", model.CachedUser{ID: userID})
	}, h.userLedger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/ledger?limit=10&offset=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, fake.lastUserID)
	assert.Equal(t, 10, fake.lastLimit)
	assert.Equal(t, 5, fake.lastOffset)
	assert.Contains(t, w.Body.String(), `"entry_type":"debit"`)
	assert.Contains(t, w.Body.String(), `"reason":"purchase"`)
}

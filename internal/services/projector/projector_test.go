package projector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/internal/storage/inventory"
)

func tradeWith(t *testing.T, items ...domain.TradeItem) domain.Trade {
	t.Helper()

	trade, err := domain.NewTrade(
		uuid.New().String(),
		time.Now().UTC(),
		domain.Party{ID: "user-1", Name: "alice"},
		domain.Party{ID: "merchant-1", Name: "corner store"},
		items,
	)
	require.NoError(t, err)
	return trade
}

func TestApplyLocallyFullTransferRemovesItem(t *testing.T) {
	store := inventory.NewStore()
	item, err := domain.NewItem("i1", "user-1", "watch", decimal.NewFromFloat(50))
	require.NoError(t, err)
	store.SetAll([]domain.Item{item})

	p := New(store, zap.NewNop())
	trade := tradeWith(t, domain.TradeItem{
		ItemID:        "i1",
		ItemName:      "watch",
		SharePct:      decimal.NewFromInt(1),
		Value:         decimal.NewFromFloat(50),
		PreviousOwner: "user-1",
		NewOwner:      "merchant-1",
	})

	require.NoError(t, p.ApplyLocally(trade))
	assert.Empty(t, store.ItemsOwnedBy("user-1"))
}

func TestApplyLocallyPartialTransferShrinksItem(t *testing.T) {
	store := inventory.NewStore()
	item, err := domain.NewItem("i1", "user-1", "jacket", decimal.NewFromFloat(40))
	require.NoError(t, err)
	store.SetAll([]domain.Item{item})

	p := New(store, zap.NewNop())
	trade := tradeWith(t, domain.TradeItem{
		ItemID:        "i1",
		ItemName:      "jacket",
		SharePct:      decimal.NewFromFloat(0.25),
		Value:         decimal.NewFromFloat(10),
		PreviousOwner: "user-1",
		NewOwner:      "merchant-1",
	})

	require.NoError(t, p.ApplyLocally(trade))

	kept, err := store.Get("i1")
	require.NoError(t, err)
	assert.True(t, kept.Value.Equal(decimal.NewFromFloat(30)), "residual value, got %s", kept.Value)
	assert.True(t, kept.ShareRatio.Equal(decimal.NewFromFloat(0.75)), "residual ratio, got %s", kept.ShareRatio)
	assert.Equal(t, "user-1", kept.OwnerID)

	// payee counterpart is visible locally
	payeeItems := store.ItemsOwnedBy("merchant-1")
	require.Len(t, payeeItems, 1)
	assert.True(t, payeeItems[0].Value.Equal(decimal.NewFromFloat(10)))
}

func TestApplyLocallyDropsExhaustedResidual(t *testing.T) {
	store := inventory.NewStore()
	item, err := domain.NewItem("i1", "user-1", "pin", decimal.NewFromFloat(0.01))
	require.NoError(t, err)
	store.SetAll([]domain.Item{item})

	// half of one cent rounds up to the whole cent, leaving a zero residual
	p := New(store, zap.NewNop())
	trade := tradeWith(t, domain.TradeItem{
		ItemID:        "i1",
		ItemName:      "pin",
		SharePct:      decimal.NewFromFloat(0.5),
		Value:         decimal.NewFromFloat(0.01),
		PreviousOwner: "user-1",
		NewOwner:      "merchant-1",
	})

	require.NoError(t, p.ApplyLocally(trade))

	// a residual below one cent is not kept as a zero record
	assert.Empty(t, store.ItemsOwnedBy("user-1"))
}

func TestApplyLocallyMissingItemIsSkipped(t *testing.T) {
	store := inventory.NewStore()
	p := New(store, zap.NewNop())

	trade := tradeWith(t, domain.TradeItem{
		ItemID:        "gone",
		ItemName:      "gone",
		SharePct:      decimal.NewFromInt(1),
		Value:         decimal.NewFromFloat(5),
		PreviousOwner: "user-1",
		NewOwner:      "merchant-1",
	})

	assert.NoError(t, p.ApplyLocally(trade))
}

func TestRefreshFromBackendOverwritesProjection(t *testing.T) {
	store := inventory.NewStore()
	item, err := domain.NewItem("i1", "user-1", "watch", decimal.NewFromFloat(50))
	require.NoError(t, err)
	store.SetAll([]domain.Item{item})

	backend := clients.NewFakeBackend()
	authoritative, err := domain.NewItem("i2", "user-1", "boots", decimal.NewFromFloat(75))
	require.NoError(t, err)
	backend.SeedItems(authoritative)

	p := New(store, zap.NewNop())
	require.NoError(t, p.RefreshFromBackend(context.Background(), backend, "user-1"))

	owned := store.ItemsOwnedBy("user-1")
	require.Len(t, owned, 1)
	assert.Equal(t, "i2", owned[0].ID)
}

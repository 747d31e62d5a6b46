package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/internal/storage/ledger"
)

func testTrade(t *testing.T, itemID string, value float64) domain.Trade {
	t.Helper()

	trade, err := domain.NewTrade(
		uuid.New().String(),
		time.Now().UTC(),
		domain.Party{ID: "user-1", Name: "alice"},
		domain.Party{ID: "merchant-1", Name: "corner store"},
		[]domain.TradeItem{
			{
				ItemID:        itemID,
				ItemName:      "item " + itemID,
				SharePct:      decimal.NewFromInt(1),
				Value:         decimal.NewFromFloat(value),
				PreviousOwner: "user-1",
				NewOwner:      "merchant-1",
			},
		},
	)
	require.NoError(t, err)
	return trade
}

func seededBackend(t *testing.T, itemIDs ...string) *clients.FakeBackend {
	t.Helper()

	backend := clients.NewFakeBackend()
	for _, id := range itemIDs {
		item, err := domain.NewItem(id, "user-1", "item "+id, decimal.NewFromFloat(100))
		require.NoError(t, err)
		backend.SeedItems(item)
	}
	return backend
}

func TestSyncAllEmptyQueue(t *testing.T) {
	l, err := ledger.New(t.TempDir() + "/trades")
	require.NoError(t, err)
	defer l.Close()

	coord := New(l, clients.NewFakeBackend(), 0, zap.NewNop())
	report, err := coord.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
}

func TestSyncAllDrainsQueue(t *testing.T) {
	l, err := ledger.New(t.TempDir() + "/trades")
	require.NoError(t, err)
	defer l.Close()

	backend := seededBackend(t, "i1", "i2")
	require.NoError(t, l.Record(testTrade(t, "i1", 10)))
	require.NoError(t, l.Record(testTrade(t, "i2", 20)))

	coord := New(l, backend, 0, zap.NewNop())
	report, err := coord.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Synced: 2, Failed: 0}, report)
	assert.Empty(t, l.ListPending())
	assert.Equal(t, 2, backend.AcceptedCount())
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	l, err := ledger.New(t.TempDir() + "/trades")
	require.NoError(t, err)
	defer l.Close()

	backend := seededBackend(t, "i1", "i2", "i3")

	first := testTrade(t, "i1", 10)
	second := testTrade(t, "i2", 20)
	third := testTrade(t, "i3", 30)
	require.NoError(t, l.Record(first))
	require.NoError(t, l.Record(second))
	require.NoError(t, l.Record(third))

	backend.FailTrade = func(trade domain.Trade) error {
		if trade.ID == second.ID {
			return errors.New("connection reset")
		}
		return nil
	}

	coord := New(l, backend, 0, zap.NewNop())
	report, err := coord.SyncAll(context.Background())
	require.NoError(t, err)

	// the middle failure must not abort the rest of the pass
	assert.Equal(t, Report{Synced: 2, Failed: 1}, report)

	pending := l.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, domain.TradeStatusFailed, pending[0].Status)
}

func TestSyncAllRetriesFailedTrades(t *testing.T) {
	l, err := ledger.New(t.TempDir() + "/trades")
	require.NoError(t, err)
	defer l.Close()

	backend := seededBackend(t, "i1")
	trade := testTrade(t, "i1", 10)
	require.NoError(t, l.Record(trade))

	offline := true
	backend.FailTrade = func(domain.Trade) error {
		if offline {
			return errors.New("network unreachable")
		}
		return nil
	}

	coord := New(l, backend, 0, zap.NewNop())

	report, err := coord.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Synced: 0, Failed: 1}, report)

	// connectivity restored, the failed trade goes through on the next pass
	offline = false
	report, err = coord.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Synced: 1, Failed: 0}, report)
	assert.Empty(t, l.ListPending())
}

func TestSyncAllResubmissionIsIdempotent(t *testing.T) {
	l, err := ledger.New(t.TempDir() + "/trades")
	require.NoError(t, err)
	defer l.Close()

	backend := seededBackend(t, "i1")
	trade := testTrade(t, "i1", 10)
	require.NoError(t, l.Record(trade))

	coord := New(l, backend, 0, zap.NewNop())
	_, err = coord.SyncAll(context.Background())
	require.NoError(t, err)

	// simulate a lost success response: the trade is queued again locally
	// even though the backend already accepted it
	require.NoError(t, l.Record(trade))
	report, err := coord.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Synced: 1, Failed: 0}, report)
	assert.Equal(t, 1, backend.AcceptedCount(), "ownership transfer must not double-apply")
}

func TestSyncAllStopsOnCancelledContext(t *testing.T) {
	l, err := ledger.New(t.TempDir() + "/trades")
	require.NoError(t, err)
	defer l.Close()

	backend := seededBackend(t, "i1")
	require.NoError(t, l.Record(testTrade(t, "i1", 10)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := New(l, backend, 0, zap.NewNop())
	_, err = coord.SyncAll(ctx)
	assert.Error(t, err)
}

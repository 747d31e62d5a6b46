package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/trovapay/trova/internal/domain"
)

func item(id, owner string, value int64) domain.Item {
	return domain.Item{
		ID:         id,
		OwnerID:    owner,
		Label:      id,
		Value:      decimal.NewFromInt(value),
		ShareRatio: decimal.NewFromInt(1),
	}
}

func TestStoreItemsOwnedByKeepsInsertionOrder(t *testing.T) {
	store := NewStore()
	store.SetAll([]domain.Item{
		item("c", "alice", 30),
		item("a", "alice", 10),
		item("x", "bob", 99),
		item("b", "alice", 20),
	})

	owned := store.ItemsOwnedBy("alice")
	require.Len(t, owned, 3)
	require.Equal(t, "c", owned[0].ID)
	require.Equal(t, "a", owned[1].ID)
	require.Equal(t, "b", owned[2].ID)
}

func TestStoreSetAllReplacesView(t *testing.T) {
	store := NewStore()
	store.SetAll([]domain.Item{item("a", "alice", 10)})
	store.SetAll([]domain.Item{item("b", "alice", 20)})

	_, err := store.Get("a")
	require.ErrorIs(t, err, ErrItemNotFound)

	got, err := store.Get("b")
	require.NoError(t, err)
	require.True(t, got.Value.Equal(decimal.NewFromInt(20)))
}

func TestStoreUpsertAndRemove(t *testing.T) {
	store := NewStore()
	store.Upsert(item("a", "alice", 10))

	updated := item("a", "alice", 7)
	store.Upsert(updated)

	got, err := store.Get("a")
	require.NoError(t, err)
	require.True(t, got.Value.Equal(decimal.NewFromInt(7)))
	require.Len(t, store.ItemsOwnedBy("alice"), 1)

	store.Remove("a")
	_, err = store.Get("a")
	require.ErrorIs(t, err, ErrItemNotFound)

	// removing twice is a no-op
	store.Remove("a")
}

package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/pkg/retrier"
)

func fastBackend(url string) *HTTPBackend {
	b := NewHTTPBackend(url)
	b.retrier = retrier.New(
		retrier.WithMaxRetries(defaultMaxRetries),
		retrier.WithInitialInterval(time.Millisecond),
	)
	return b
}

func TestHTTPBackendSubmitTradeSendsTradeID(t *testing.T) {
	var got submitTradeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/trades", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	trade, err := domain.NewTrade(
		"trade-7",
		time.Now().UTC(),
		domain.Party{ID: "alice"},
		domain.Party{ID: "bob"},
		[]domain.TradeItem{{
			ItemID:        "item-1",
			SharePct:      decimal.NewFromInt(1),
			Value:         decimal.NewFromInt(40),
			PreviousOwner: "alice",
			NewOwner:      "bob",
		}},
	)
	require.NoError(t, err)

	require.NoError(t, fastBackend(srv.URL).SubmitTrade(context.Background(), trade))
	require.Equal(t, "trade-7", got.TradeID)
	require.Equal(t, "alice", got.PayerID)
	require.True(t, got.TotalValue.Equal(decimal.NewFromInt(40)))
}

func TestHTTPBackendSubmitTradeDoesNotRetryRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"signature mismatch"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	trade := domain.Trade{ID: "trade-7", Payer: domain.Party{ID: "alice"}, Payee: domain.Party{ID: "bob"}}
	err := fastBackend(srv.URL).SubmitTrade(context.Background(), trade)
	require.ErrorIs(t, err, ErrRejected)
	require.Equal(t, int32(1), calls.Load(), "rejection must not be retried")
}

func TestHTTPBackendSubmitTradeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	trade := domain.Trade{ID: "trade-7", Payer: domain.Party{ID: "alice"}, Payee: domain.Party{ID: "bob"}}
	require.NoError(t, fastBackend(srv.URL).SubmitTrade(context.Background(), trade))
	require.Equal(t, int32(3), calls.Load())
}

func TestHTTPBackendFetchItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/items/user/alice", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]domain.Item{
			{ID: "item-1", OwnerID: "alice", Label: "jacket", Value: decimal.NewFromInt(40), ShareRatio: decimal.NewFromInt(1)},
		})
	}))
	defer srv.Close()

	items, err := fastBackend(srv.URL).FetchItems(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "jacket", items[0].Label)
}

func TestHTTPBackendLoginRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fastBackend(srv.URL).Login(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, ErrRejected)
}

func TestHTTPBackendValuation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/valuations/mock", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"value": "68.00"})
	}))
	defer srv.Close()

	value, err := fastBackend(srv.URL).RequestValuation(context.Background(), ValuationRequest{Category: "clothing"})
	require.NoError(t, err)
	require.True(t, value.Equal(decimal.RequireFromString("68")))
}

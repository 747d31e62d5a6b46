// Command devbackend is an in-memory implementation of the trova backend
// HTTP contract, for development and integration testing. Trade submission
// is idempotent on trade id, matching what the client's sync relies on.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/domain"
)

type user struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	PinHash  string `json:"pin_hash"`
}

type service struct {
	mu     sync.Mutex
	users  map[string]user // by username
	items  map[string]domain.Item
	trades map[string]domain.Trade // by trade id
	l      *zap.Logger
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	svc := &service{
		users:  make(map[string]user),
		items:  make(map[string]domain.Item),
		trades: make(map[string]domain.Trade),
		l:      logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/users/register", svc.registerUser).Methods("POST")
	r.HandleFunc("/api/users/login", svc.login).Methods("POST")
	r.HandleFunc("/api/items", svc.createItem).Methods("POST")
	r.HandleFunc("/api/items/user/{userId}", svc.listItems).Methods("GET")
	r.HandleFunc("/api/items/{itemId}", svc.deleteItem).Methods("DELETE")
	r.HandleFunc("/api/trades", svc.submitTrade).Methods("POST")
	r.HandleFunc("/api/trades/sync", svc.bulkSync).Methods("POST")
	r.HandleFunc("/api/trades/user/{userId}", svc.listTrades).Methods("GET")
	r.HandleFunc("/api/valuations/mock", svc.valuation).Methods("POST")

	logger.Info("dev backend listening", zap.String("addr", *addr))
	server := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type userRequest struct {
	Username string `json:"username"`
	PinHash  string `json:"pin_hash"`
}

func (s *service) registerUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		httpError(w, http.StatusBadRequest, "username is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Username]; exists {
		httpError(w, http.StatusConflict, "username taken")
		return
	}

	u := user{UserID: uuid.New().String(), Username: req.Username, PinHash: req.PinHash}
	s.users[req.Username] = u
	s.l.Info("user registered", zap.String("user_id", u.UserID))
	writeJSON(w, u)
}

func (s *service) login(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Username]
	if !ok || u.PinHash != req.PinHash {
		httpError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, u)
}

func (s *service) createItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string          `json:"owner_id"`
		Label   string          `json:"item_name"`
		Value   decimal.Decimal `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := domain.NewItem(uuid.New().String(), req.OwnerID, req.Label, req.Value)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.items[item.ID] = item
	s.mu.Unlock()

	writeJSON(w, item)
}

func (s *service) listItems(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["userId"]

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]domain.Item, 0)
	for _, item := range s.items {
		if item.OwnerID == ownerID {
			owned = append(owned, item)
		}
	}
	writeJSON(w, owned)
}

func (s *service) deleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		httpError(w, http.StatusNotFound, "item not found")
		return
	}
	delete(s.items, itemID)
	w.WriteHeader(http.StatusNoContent)
}

type tradeRequest struct {
	TradeID        string             `json:"trade_id"`
	PayerID        string             `json:"payer_id"`
	PayeeID        string             `json:"payee_id"`
	Items          []domain.TradeItem `json:"items"`
	TotalValue     decimal.Decimal    `json:"total_value"`
	PayerSignature string             `json:"payer_signature"`
	PayeeSignature string             `json:"payee_signature"`
}

func (s *service) submitTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trade, status, err := s.applyTrade(req)
	if err != nil {
		httpError(w, status, err.Error())
		return
	}
	writeJSON(w, trade)
}

func (s *service) bulkSync(w http.ResponseWriter, r *http.Request) {
	var reqs []tradeRequest
	if !decodeBody(w, r, &reqs) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	syncedIDs := make([]string, 0, len(reqs))
	failed := 0
	for _, req := range reqs {
		trade, _, err := s.applyTrade(req)
		if err != nil {
			failed++
			continue
		}
		syncedIDs = append(syncedIDs, trade.ID)
	}

	writeJSON(w, map[string]any{
		"synced":     len(syncedIDs),
		"failed":     failed,
		"synced_ids": syncedIDs,
	})
}

// applyTrade validates and applies a submission. Caller holds the lock.
// A trade id that was already accepted is returned as-is without touching
// item state.
func (s *service) applyTrade(req tradeRequest) (domain.Trade, int, error) {
	if req.TradeID == "" {
		req.TradeID = uuid.New().String()
	}

	if existing, done := s.trades[req.TradeID]; done {
		s.l.Info("duplicate trade submission deduped", zap.String("trade_id", req.TradeID))
		return existing, http.StatusOK, nil
	}

	trade, err := domain.NewTrade(
		req.TradeID,
		time.Now().UTC(),
		domain.Party{ID: req.PayerID},
		domain.Party{ID: req.PayeeID},
		req.Items,
	)
	if err != nil {
		return domain.Trade{}, http.StatusBadRequest, err
	}
	trade.PayerSignature = req.PayerSignature
	trade.PayeeSignature = req.PayeeSignature
	trade.Status = domain.TradeStatusSynced

	one := decimal.NewFromInt(1)
	for _, ti := range trade.Items {
		item, ok := s.items[ti.ItemID]
		if !ok {
			continue // item may have been deposited through another channel
		}

		if ti.SharePct.GreaterThanOrEqual(one) {
			item.OwnerID = ti.NewOwner
			s.items[item.ID] = item
			continue
		}

		item.Value = domain.RoundCurrency(item.Value.Sub(ti.Value))
		item.ShareRatio = item.ShareRatio.Mul(one.Sub(ti.SharePct))
		s.items[item.ID] = item

		counterpart := domain.Item{
			ID:         ti.ItemID + ":" + trade.ID,
			OwnerID:    ti.NewOwner,
			Label:      ti.ItemName,
			Value:      domain.RoundCurrency(ti.Value),
			ShareRatio: ti.SharePct,
		}
		s.items[counterpart.ID] = counterpart
	}

	s.trades[trade.ID] = trade
	s.l.Info("trade accepted",
		zap.String("trade_id", trade.ID),
		zap.String("total", trade.TotalValue.String()))
	return trade, http.StatusOK, nil
}

func (s *service) listTrades(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	s.mu.Lock()
	defer s.mu.Unlock()

	trades := make([]domain.Trade, 0)
	for _, trade := range s.trades {
		if trade.Payer.ID == userID || trade.Payee.ID == userID {
			trades = append(trades, trade)
		}
	}
	writeJSON(w, trades)
}

func (s *service) valuation(w http.ResponseWriter, r *http.Request) {
	var req clients.ValuationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	value, err := clients.MockValuation(req)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]decimal.Decimal{"value": value})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TradeStatus is the lifecycle state of a locally recorded trade.
type TradeStatus string

const (
	// TradeStatusPending means the trade is durably recorded but not yet
	// accepted by the backend.
	TradeStatusPending TradeStatus = "pending"
	// TradeStatusSynced means the backend accepted the trade. Terminal.
	TradeStatusSynced TradeStatus = "synced"
	// TradeStatusFailed means the last submission attempt failed; the trade
	// stays queued for retry.
	TradeStatusFailed TradeStatus = "failed"
)

// Party identifies one side of a trade.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TradeItem is a single unit (or fraction of one) changing hands in a trade.
type TradeItem struct {
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	SharePct      decimal.Decimal `json:"share_percentage"`
	Value         decimal.Decimal `json:"value"`
	PreviousOwner string          `json:"previous_owner"`
	NewOwner      string          `json:"new_owner"`
}

// Validate checks per-item trade invariants.
func (ti *TradeItem) Validate() error {
	if ti.ItemID == "" {
		return errors.New("trade item id is required")
	}
	if ti.SharePct.LessThanOrEqual(decimal.Zero) || ti.SharePct.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Errorf("trade item %s has share %s outside (0,1]", ti.ItemID, ti.SharePct)
	}
	if ti.Value.IsNegative() {
		return errors.Errorf("trade item %s has negative value %s", ti.ItemID, ti.Value)
	}
	if ti.PreviousOwner == ti.NewOwner {
		return errors.Errorf("trade item %s transfers to its current owner %s", ti.ItemID, ti.NewOwner)
	}
	return nil
}

// Trade is a settlement event between two parties. It is created locally,
// persisted before any network attempt, and mutated only by sync outcome.
type Trade struct {
	ID             string          `json:"trade_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Payer          Party           `json:"payer"`
	Payee          Party           `json:"payee"`
	Items          []TradeItem     `json:"items"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Status         TradeStatus     `json:"status"`
	PayerSignature string          `json:"payer_signature"`
	PayeeSignature string          `json:"payee_signature"`
}

// NewTrade builds a pending trade with its total derived from the items.
// Signatures are attached by the caller after signing.
func NewTrade(id string, ts time.Time, payer, payee Party, items []TradeItem) (Trade, error) {
	if id == "" {
		return Trade{}, errors.New("trade id is required")
	}
	if payer.ID == payee.ID {
		return Trade{}, errors.Errorf("payer and payee are the same party %s", payer.ID)
	}
	if len(items) == 0 {
		return Trade{}, errors.New("trade has no items")
	}

	total := decimal.Zero
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return Trade{}, err
		}
		total = total.Add(items[i].Value)
	}

	return Trade{
		ID:         id,
		Timestamp:  ts,
		Payer:      payer,
		Payee:      payee,
		Items:      items,
		TotalValue: RoundCurrency(total),
		Status:     TradeStatusPending,
	}, nil
}

// Package settlement runs the dual-party trade flow: allocate value, sign
// for both parties, record durably, and apply the optimistic local effect.
package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/internal/services/allocator"
	"github.com/trovapay/trova/internal/services/attest"
	"github.com/trovapay/trova/internal/storage/inventory"
)

// ErrInsufficientFunds is returned when the payer's inventory cannot cover
// the requested amount. No partial trades are settled.
var ErrInsufficientFunds = errors.New("insufficient item value to cover amount")

// TradeRecorder is the slice of the ledger settlement needs.
type TradeRecorder interface {
	Record(trade domain.Trade) error
}

// LocalApplier applies the optimistic inventory effect of a settled trade.
type LocalApplier interface {
	ApplyLocally(trade domain.Trade) error
}

// Request describes a settlement between two authenticated parties.
// PayerSecret and PayeeSecret are each either the entered PIN or
// attest.SecretBiometric.
type Request struct {
	Payer       domain.Party
	Payee       domain.Party
	Amount      decimal.Decimal
	Strategy    allocator.Strategy
	PayerSecret string
	PayeeSecret string
}

// Service wires the settlement pipeline. All dependencies are injected;
// the service holds no process-global state.
type Service struct {
	inventory *inventory.Store
	signer    attest.Signer
	recorder  TradeRecorder
	applier   LocalApplier
	l         *zap.Logger
}

// New creates the settlement service.
func New(inv *inventory.Store, signer attest.Signer, recorder TradeRecorder, applier LocalApplier, logger *zap.Logger) *Service {
	return &Service{
		inventory: inv,
		signer:    signer,
		recorder:  recorder,
		applier:   applier,
		l:         logger,
	}
}

// Settle allocates the amount from the payer's cached inventory, signs the
// trade for both parties, and records it durably. Settlement is complete
// once the record is on disk; remote sync happens asynchronously. If the
// durable write fails the trade is not considered recorded and the caller
// must surface the error so the user can retry.
func (s *Service) Settle(ctx context.Context, req Request) (domain.Trade, error) {
	if err := ctx.Err(); err != nil {
		return domain.Trade{}, err
	}

	owned := s.inventory.ItemsOwnedBy(req.Payer.ID)

	alloc, err := allocator.Allocate(owned, req.Amount, req.Strategy)
	if err != nil {
		return domain.Trade{}, err
	}
	if !alloc.Covered() {
		return domain.Trade{}, errors.Wrapf(ErrInsufficientFunds,
			"short %s of %s", alloc.Remaining, req.Amount)
	}

	items, err := s.tradeItems(alloc, req)
	if err != nil {
		return domain.Trade{}, err
	}

	trade, err := domain.NewTrade(uuid.New().String(), time.Now().UTC(), req.Payer, req.Payee, items)
	if err != nil {
		return domain.Trade{}, err
	}

	payload := attest.Payload{Items: trade.Items, Timestamp: trade.Timestamp.UnixMilli()}

	trade.PayerSignature, err = s.signer.Sign(payload, req.PayerSecret)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "payer attestation")
	}
	trade.PayeeSignature, err = s.signer.Sign(payload, req.PayeeSecret)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "payee attestation")
	}

	if err := s.recorder.Record(trade); err != nil {
		return domain.Trade{}, errors.Wrap(err, "record trade")
	}

	if err := s.applier.ApplyLocally(trade); err != nil {
		// the trade is durably recorded; a stale local view will self-heal
		// on the next authoritative refresh
		s.l.Warn("optimistic apply failed", zap.String("trade_id", trade.ID), zap.Error(err))
	}

	s.l.Info("trade settled locally, will sync when online",
		zap.String("trade_id", trade.ID),
		zap.String("payer", req.Payer.ID),
		zap.String("payee", req.Payee.ID),
		zap.String("total", trade.TotalValue.String()))

	return trade, nil
}

func (s *Service) tradeItems(alloc domain.Allocation, req Request) ([]domain.TradeItem, error) {
	items := make([]domain.TradeItem, 0, len(alloc.Parts))
	for _, part := range alloc.Parts {
		item, err := s.inventory.Get(part.ItemID)
		if err != nil {
			return nil, err
		}

		items = append(items, domain.TradeItem{
			ItemID:        item.ID,
			ItemName:      item.Label,
			SharePct:      part.Fraction,
			Value:         part.Amount,
			PreviousOwner: req.Payer.ID,
			NewOwner:      req.Payee.ID,
		})
	}
	return items, nil
}
